package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/scarlett-tools/scarlettd/core"
	"github.com/scarlett-tools/scarlettd/memorywriter"
	"github.com/scarlett-tools/scarlettd/transport"
)

// Focusrite Control Protocol (FCP), used by Gen4 devices. Every request
// and response shares a 16-byte little-endian envelope:
//
//	u32 opcode
//	u16 payload length
//	u16 sequence number
//	u32 error code (zero on requests)
//	u32 padding
//
// Requests go out as a class-specific OUT control transfer (request code
// 2) addressed to the claimed vendor interface; responses come back via a
// class-specific IN transfer (request code 3) sized envelope + expected
// payload.
const (
	fcpEnvelopeLen = 16

	fcpRequestOut = 2
	fcpRequestIn  = 3
)

// The opcode space is (category << 12) | command.
const (
	fcpCatInit   = 0x0
	fcpCatMeter  = 0x1
	fcpCatMix    = 0x2
	fcpCatMux    = 0x3
	fcpCatFlash  = 0x4
	fcpCatSync   = 0x5
	fcpCatEspDfu = 0x6
	fcpCatData   = 0x8
)

func fcpOpcode(category, command uint16) uint32 {
	return uint32(category)<<12 | uint32(command)
}

var (
	opInit1 = fcpOpcode(fcpCatInit, 0x000)
	opInit2 = fcpOpcode(fcpCatInit, 0x001)

	opMeterGet = fcpOpcode(fcpCatMeter, 0x001)

	opMixGet = fcpOpcode(fcpCatMix, 0x001)
	opMixSet = fcpOpcode(fcpCatMix, 0x002)

	opMuxGet = fcpOpcode(fcpCatMux, 0x001)
	opMuxSet = fcpOpcode(fcpCatMux, 0x002)

	opFlashErase = fcpOpcode(fcpCatFlash, 0x001)
	opFlashWrite = fcpOpcode(fcpCatFlash, 0x002)

	opSyncGet = fcpOpcode(fcpCatSync, 0x001)

	opEspDfuStart = fcpOpcode(fcpCatEspDfu, 0x001)

	opDataRead   = fcpOpcode(fcpCatData, 0x000)
	opDataWrite  = fcpOpcode(fcpCatData, 0x001)
	opDataNotify = fcpOpcode(fcpCatData, 0x002)
)

// Init handshake reply payload sizes.
const (
	fcpInit1RespLen = 24
	fcpInit2RespLen = 84
)

// Fixed data-space offsets of the output volume and mute fields.
//
// Volume is a 16-bit field per output at base + 2*output, in device units
// of dB + 127 (0 encodes -127 dB, 127 encodes 0 dB). Mute is one byte per
// output at base + output, nonzero meaning muted.
const (
	fcpVolumeBase uint32 = 0x0b04
	fcpMuteBase   uint32 = 0x0ac0
)

// FCP is the protocol session for Gen4 devices. It starts uninitialized;
// the two-step init handshake must complete before any data operation.
type FCP struct {
	t        transport.Transport
	mw       *memorywriter.MemoryWriter
	ifaceNum int

	seq         uint16
	initialized bool
	fwVersion   uint32
}

func NewFCP(t transport.Transport, ifaceNum int, mw *memorywriter.MemoryWriter) *FCP {
	return &FCP{
		t:        t,
		mw:       mw,
		ifaceNum: ifaceNum,
	}
}

// Init performs the two-step handshake and reads the device firmware
// version from the second reply.
func (p *FCP) Init() error {
	p.mw.Log("fcp init step 1")
	if _, err := p.sendCommand(opInit1, nil, fcpInit1RespLen); err != nil {
		return err
	}

	p.mw.Log("fcp init step 2")
	resp, err := p.sendCommand(opInit2, nil, fcpInit2RespLen)
	if err != nil {
		return err
	}
	if len(resp) < 12 {
		return &core.ProtocolError{Op: "fcp init", Msg: "init reply too short", FromDevice: true}
	}
	p.fwVersion = binary.LittleEndian.Uint32(resp[8:12])
	p.initialized = true
	p.mw.Log(fmt.Sprintf("fcp ready, firmware version %d", p.fwVersion))
	return nil
}

func (p *FCP) FirmwareVersion() uint32 {
	return p.fwVersion
}

func (p *FCP) ensureReady() error {
	if !p.initialized {
		return core.ErrNotInitialized
	}
	return nil
}

// sendCommand issues one framed command and returns the response payload.
// The echoed sequence number and the embedded error code are both checked;
// a mismatch or nonzero code fails the call.
func (p *FCP) sendCommand(opcode uint32, payload []byte, respPayloadLen int) ([]byte, error) {
	p.seq++ // wraps at 16 bits

	request := make([]byte, 0, fcpEnvelopeLen+len(payload))
	request = binary.LittleEndian.AppendUint32(request, opcode)
	request = binary.LittleEndian.AppendUint16(request, uint16(len(payload)))
	request = binary.LittleEndian.AppendUint16(request, p.seq)
	request = binary.LittleEndian.AppendUint32(request, 0) // error
	request = binary.LittleEndian.AppendUint32(request, 0) // padding
	request = append(request, payload...)

	out := transport.ClassOut(fcpRequestOut, 0x00, uint16(p.ifaceNum))
	if _, err := p.t.ControlOut(out, request); err != nil {
		return nil, err
	}

	in := transport.ClassIn(fcpRequestIn, 0x00, uint16(p.ifaceNum))
	response, err := p.t.ControlIn(in, fcpEnvelopeLen+respPayloadLen)
	if err != nil {
		return nil, err
	}

	if len(response) < fcpEnvelopeLen {
		return nil, &core.ProtocolError{Op: "fcp", Msg: "response shorter than envelope", FromDevice: true}
	}

	respSeq := binary.LittleEndian.Uint16(response[6:8])
	if respSeq != p.seq {
		return nil, &core.ProtocolError{
			Op:         "fcp",
			Msg:        fmt.Sprintf("sequence mismatch: sent %d, got %d", p.seq, respSeq),
			FromDevice: true,
		}
	}
	if code := binary.LittleEndian.Uint32(response[8:12]); code != 0 {
		return nil, &core.ProtocolError{
			Op:         "fcp",
			Msg:        fmt.Sprintf("device error code %d", code),
			FromDevice: true,
		}
	}

	respLen := int(binary.LittleEndian.Uint16(response[4:6]))
	if len(response) < fcpEnvelopeLen+respLen {
		return nil, &core.ProtocolError{Op: "fcp", Msg: "response payload truncated", FromDevice: true}
	}
	return response[fcpEnvelopeLen : fcpEnvelopeLen+respLen], nil
}

func validDataSize(size int) bool {
	return size == 1 || size == 2 || size == 4
}

// ReadData reads a signed integer of 1, 2 or 4 bytes from the device data
// space. Invalid sizes are rejected before any transfer is issued.
func (p *FCP) ReadData(offset uint32, size int) (int32, error) {
	if err := p.ensureReady(); err != nil {
		return 0, err
	}
	if !validDataSize(size) {
		return 0, &core.ProtocolError{Op: "fcp read", Msg: fmt.Sprintf("invalid data size %d", size)}
	}

	payload := make([]byte, 0, 8)
	payload = binary.LittleEndian.AppendUint32(payload, offset)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(size))

	resp, err := p.sendCommand(opDataRead, payload, size)
	if err != nil {
		return 0, err
	}
	if len(resp) < size {
		return 0, &core.ProtocolError{Op: "fcp read", Msg: "data reply too short", FromDevice: true}
	}

	switch size {
	case 1:
		return int32(int8(resp[0])), nil
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(resp[0:2]))), nil
	default:
		return int32(binary.LittleEndian.Uint32(resp[0:4])), nil
	}
}

// WriteData writes a signed integer of 1, 2 or 4 bytes to the device data
// space. Invalid sizes are rejected before any transfer is issued.
func (p *FCP) WriteData(offset uint32, size int, value int32) error {
	if err := p.ensureReady(); err != nil {
		return err
	}
	if !validDataSize(size) {
		return &core.ProtocolError{Op: "fcp write", Msg: fmt.Sprintf("invalid data size %d", size)}
	}

	payload := make([]byte, 0, 8+size)
	payload = binary.LittleEndian.AppendUint32(payload, offset)
	payload = binary.LittleEndian.AppendUint32(payload, uint32(size))
	switch size {
	case 1:
		payload = append(payload, byte(value))
	case 2:
		payload = binary.LittleEndian.AppendUint16(payload, uint16(value))
	default:
		payload = binary.LittleEndian.AppendUint32(payload, uint32(value))
	}

	_, err := p.sendCommand(opDataWrite, payload, 0)
	return err
}

// ClampDB limits a requested volume to the device range of [-127, 0] dB.
func ClampDB(db int) int {
	if db < int(core.MinDB) {
		return int(core.MinDB)
	}
	if db > 0 {
		return 0
	}
	return db
}

// FCPDeviceUnits converts dB to device volume units (dB + 127). The input
// is clamped to [-127, 0].
func FCPDeviceUnits(db int) int {
	return ClampDB(db) + 127
}

// FCPUnitsToDB converts device volume units back to dB.
func FCPUnitsToDB(units int) int {
	return units - 127
}

func (p *FCP) volumeOffset(output int) uint32 {
	return fcpVolumeBase + 2*uint32(output)
}

func (p *FCP) muteOffset(output int) uint32 {
	return fcpMuteBase + uint32(output)
}

// GetOutputVolume reads one output volume in dB.
func (p *FCP) GetOutputVolume(output int) (int, error) {
	units, err := p.ReadData(p.volumeOffset(output), 2)
	if err != nil {
		return 0, err
	}
	return FCPUnitsToDB(int(units)), nil
}

// SetOutputVolume writes one output volume. The dB value is clamped to
// [-127, 0] before conversion.
func (p *FCP) SetOutputVolume(output int, db int) error {
	return p.WriteData(p.volumeOffset(output), 2, int32(FCPDeviceUnits(db)))
}

// AdjustOutputVolume is a read-modify-write convenience with no atomicity
// guarantee against concurrent access. Returns the new volume in dB.
func (p *FCP) AdjustOutputVolume(output int, delta int) (int, error) {
	db, err := p.GetOutputVolume(output)
	if err != nil {
		return 0, err
	}
	db = ClampDB(db + delta)
	if err := p.SetOutputVolume(output, db); err != nil {
		return 0, err
	}
	return db, nil
}

func (p *FCP) GetMute(output int) (bool, error) {
	v, err := p.ReadData(p.muteOffset(output), 1)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (p *FCP) SetMute(output int, muted bool) error {
	var v int32
	if muted {
		v = 1
	}
	return p.WriteData(p.muteOffset(output), 1, v)
}

// ToggleMute is a read-modify-write convenience with no atomicity
// guarantee. Returns the new mute state.
func (p *FCP) ToggleMute(output int) (bool, error) {
	muted, err := p.GetMute(output)
	if err != nil {
		return false, err
	}
	if err := p.SetMute(output, !muted); err != nil {
		return false, err
	}
	return !muted, nil
}

// Routing and mixer-state payload layouts for the mux/mix categories are
// per-model; the typed views stay empty until a mapping exists.

func (p *FCP) GetRouting() (core.RoutingMatrix, error) {
	return core.NewRoutingMatrix(), nil
}

func (p *FCP) SetRouting(m *core.RoutingMatrix) error {
	return nil
}

func (p *FCP) GetMixerState() (core.MixerState, error) {
	return core.NewMixerState(), nil
}

func (p *FCP) SetChannelVolume(channel int, db float64) error {
	return nil
}

func (p *FCP) GetLevelMeters() ([]core.LevelMeter, error) {
	return nil, nil
}
