// Package protocol implements the two proprietary control protocols of the
// Scarlett family: the Scarlett2 framing used by Gen2/Gen3 devices and the
// opcode-based Focusrite Control Protocol (FCP) used by Gen4 devices.
//
// An Engine exclusively owns the Transport it was constructed with. The
// framings are strictly request-then-response with a shared sequence
// counter, so callers must serialize access to a session; the engines do no
// internal locking.
package protocol

import (
	"github.com/scarlett-tools/scarlettd/core"
	"github.com/scarlett-tools/scarlettd/memorywriter"
	"github.com/scarlett-tools/scarlettd/transport"
)

// Engine is one protocol session bound to a device for the lifetime of a
// connection. Generations without a wire protocol get a stub engine with
// well-defined empty results, which keeps the dispatcher total.
type Engine interface {
	// Init performs the protocol handshake. Must be called before any
	// data operation.
	Init() error

	// FirmwareVersion is read during Init where the protocol reports it;
	// zero otherwise.
	FirmwareVersion() uint32

	GetRouting() (core.RoutingMatrix, error)
	SetRouting(m *core.RoutingMatrix) error
	GetMixerState() (core.MixerState, error)
	SetChannelVolume(channel int, db float64) error
	GetLevelMeters() ([]core.LevelMeter, error)

	// Output volume and mute, in dB. Implemented for Gen4 (FCP); other
	// generations return core.ErrNotSupported.
	GetOutputVolume(output int) (int, error)
	SetOutputVolume(output int, db int) error
	AdjustOutputVolume(output int, delta int) (int, error)
	GetMute(output int) (bool, error)
	SetMute(output int, muted bool) error
	ToggleMute(output int) (bool, error)
}

// New selects the engine for a device generation. Gen4 talks FCP through
// the claimed vendor interface; Gen2/Gen3 talk Scarlett2 on the default
// pipe; everything else has no implemented wire protocol yet and gets the
// stub.
func New(gen core.Generation, t transport.Transport, ifaceNum int, mw *memorywriter.MemoryWriter) Engine {
	switch gen {
	case core.Gen4:
		return NewFCP(t, ifaceNum, mw)
	case core.Gen2, core.Gen3:
		return NewScarlett2(t, mw)
	default:
		return NewStub(gen)
	}
}

// Stub is the placeholder engine for generations without an implemented
// wire protocol (Gen1, Clarett, Clarett+, Vocaster). Reads return empty
// results, writes are no-ops, volume/mute report not supported.
type Stub struct {
	gen core.Generation
}

func NewStub(gen core.Generation) *Stub {
	return &Stub{gen: gen}
}

func (s *Stub) Init() error {
	return nil
}

func (s *Stub) FirmwareVersion() uint32 {
	return 0
}

func (s *Stub) GetRouting() (core.RoutingMatrix, error) {
	return core.NewRoutingMatrix(), nil
}

func (s *Stub) SetRouting(m *core.RoutingMatrix) error {
	return nil
}

func (s *Stub) GetMixerState() (core.MixerState, error) {
	return core.NewMixerState(), nil
}

func (s *Stub) SetChannelVolume(channel int, db float64) error {
	return nil
}

func (s *Stub) GetLevelMeters() ([]core.LevelMeter, error) {
	return nil, nil
}

func (s *Stub) GetOutputVolume(output int) (int, error) {
	return 0, core.ErrNotSupported
}

func (s *Stub) SetOutputVolume(output int, db int) error {
	return core.ErrNotSupported
}

func (s *Stub) AdjustOutputVolume(output int, delta int) (int, error) {
	return 0, core.ErrNotSupported
}

func (s *Stub) GetMute(output int) (bool, error) {
	return false, core.ErrNotSupported
}

func (s *Stub) SetMute(output int, muted bool) error {
	return core.ErrNotSupported
}

func (s *Stub) ToggleMute(output int) (bool, error) {
	return false, core.ErrNotSupported
}
