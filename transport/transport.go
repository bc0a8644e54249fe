// Package transport abstracts USB control and bulk transfers behind a
// capability interface, so the protocol engines can run over a local USB
// stack today and other backends (USB/IP, mocks) later.
package transport

import "time"

// DefaultTimeout applies to every transfer that does not override it.
const DefaultTimeout = time.Second

// Request type bytes for the four transfer shapes the protocols use.
const (
	requestTypeVendorOut = 0x40
	requestTypeVendorIn  = 0xC0
	requestTypeClassOut  = 0x21
	requestTypeClassIn   = 0xA1
)

// ControlRequest carries the raw parameters of one USB control transfer.
type ControlRequest struct {
	RequestType byte
	Request     byte
	Value       uint16
	Index       uint16
	Timeout     time.Duration
}

func newRequest(requestType, request byte, value, index uint16) ControlRequest {
	return ControlRequest{
		RequestType: requestType,
		Request:     request,
		Value:       value,
		Index:       index,
		Timeout:     DefaultTimeout,
	}
}

// VendorOut builds a vendor-specific host-to-device request (0x40).
func VendorOut(request byte, value, index uint16) ControlRequest {
	return newRequest(requestTypeVendorOut, request, value, index)
}

// VendorIn builds a vendor-specific device-to-host request (0xC0).
func VendorIn(request byte, value, index uint16) ControlRequest {
	return newRequest(requestTypeVendorIn, request, value, index)
}

// ClassOut builds a class-specific host-to-device request (0x21).
func ClassOut(request byte, value, index uint16) ControlRequest {
	return newRequest(requestTypeClassOut, request, value, index)
}

// ClassIn builds a class-specific device-to-host request (0xA1).
func ClassIn(request byte, value, index uint16) ControlRequest {
	return newRequest(requestTypeClassIn, request, value, index)
}

// WithTimeout returns a copy of the request with a custom timeout. Callers
// doing slow operations (firmware erase) pick their own.
func (r ControlRequest) WithTimeout(d time.Duration) ControlRequest {
	r.Timeout = d
	return r
}

// Transport is one open device. Transfers block until completion or
// timeout; failures surface as *core.TransportError. No retries happen at
// this layer. IsConnected is advisory only; a transport may not notice a
// disconnect until the next transfer fails.
type Transport interface {
	ControlOut(req ControlRequest, data []byte) (int, error)
	ControlIn(req ControlRequest, length int) ([]byte, error)
	BulkOut(endpoint byte, data []byte) (int, error)
	BulkIn(endpoint byte, length int) ([]byte, error)
	IsConnected() bool
	Name() string
}
