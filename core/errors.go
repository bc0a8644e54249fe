package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported means the device generation or platform has no
	// implementation for the requested operation. Terminal, never retried.
	ErrNotSupported = errors.New("not supported on this device")

	// ErrNotInitialized means a data operation was attempted on a protocol
	// session before its init handshake. Caller contract violation.
	ErrNotInitialized = errors.New("protocol session not initialized")
)

// TransportError is a USB I/O failure: transfer error, timeout or
// disconnection. It always propagates; the physical link is unusable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a framing failure: bad magic, sequence mismatch, short
// payload, unknown response type. FromDevice tells whether the device sent
// garbage (true) or we were about to (false). Never auto-retried.
type ProtocolError struct {
	Op         string
	Msg        string
	FromDevice bool
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol %s: %s", e.Op, e.Msg)
}

// ConfigError is confined to the preferences store.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Msg, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
