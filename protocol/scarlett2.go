package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scarlett-tools/scarlettd/core"
	"github.com/scarlett-tools/scarlettd/memorywriter"
	"github.com/scarlett-tools/scarlettd/transport"
)

// Scarlett2 protocol, used by Gen2 and Gen3 devices. Vendor-specific
// control transfers carry a small framed envelope:
//
//	u8 cmd (INIT=0, REQUEST=2, RESPONSE=3)
//	u8 seq
//	u16 command code, little-endian (requests only)
//	u16 payload length, little-endian
//	payload
const (
	s2CmdInit     = 0x00
	s2CmdRequest  = 0x02
	s2CmdResponse = 0x03
)

// Scarlett2 command codes.
const (
	S2GetMeterLevels uint16 = 0x1001
	S2GetConfig      uint16 = 0x1002
	S2SetConfig      uint16 = 0x1003
	S2GetMixer       uint16 = 0x3001
	S2SetMixer       uint16 = 0x3002
	S2GetRouting     uint16 = 0x3101
	S2SetRouting     uint16 = 0x3102
)

const s2ResponseBufLen = 1024

// Scarlett2 is the protocol session for Gen2/Gen3 devices. A single INIT
// command must precede use.
type Scarlett2 struct {
	t   transport.Transport
	mw  *memorywriter.MemoryWriter
	seq uint8
}

func NewScarlett2(t transport.Transport, mw *memorywriter.MemoryWriter) *Scarlett2 {
	return &Scarlett2{
		t:  t,
		mw: mw,
	}
}

// Init sends the INIT command.
func (p *Scarlett2) Init() error {
	p.mw.Log("scarlett2 init")
	req := transport.VendorOut(0x00, 0x00, 0x00)
	_, err := p.t.ControlOut(req, []byte{s2CmdInit, 0x00})
	return err
}

func (p *Scarlett2) FirmwareVersion() uint32 {
	return 0
}

// SendCommand issues one request and returns the response payload. The
// response must echo the RESPONSE command byte and the request's sequence
// number; any mismatch is a protocol error, not silently ignored.
func (p *Scarlett2) SendCommand(cmd uint16, data []byte) ([]byte, error) {
	p.seq++ // wraps at 8 bits

	request := make([]byte, 0, 6+len(data))
	request = append(request, s2CmdRequest, p.seq)
	request = binary.LittleEndian.AppendUint16(request, cmd)
	request = binary.LittleEndian.AppendUint16(request, uint16(len(data)))
	request = append(request, data...)

	if _, err := p.t.ControlOut(transport.VendorOut(0x00, 0x00, 0x00), request); err != nil {
		return nil, err
	}

	response, err := p.t.ControlIn(transport.VendorIn(0x00, 0x00, 0x00), s2ResponseBufLen)
	if err != nil {
		return nil, err
	}

	if len(response) < 4 {
		return nil, &core.ProtocolError{Op: "scarlett2", Msg: "response too short", FromDevice: true}
	}
	if response[0] != s2CmdResponse {
		return nil, &core.ProtocolError{
			Op:         "scarlett2",
			Msg:        fmt.Sprintf("invalid response command 0x%02x", response[0]),
			FromDevice: true,
		}
	}
	if response[1] != p.seq {
		return nil, &core.ProtocolError{
			Op:         "scarlett2",
			Msg:        fmt.Sprintf("sequence mismatch: sent %d, got %d", p.seq, response[1]),
			FromDevice: true,
		}
	}

	payloadLen := int(binary.LittleEndian.Uint16(response[2:4]))
	if len(response) < 4+payloadLen {
		return nil, &core.ProtocolError{Op: "scarlett2", Msg: "response payload truncated", FromDevice: true}
	}
	return response[4 : 4+payloadLen], nil
}

// GetMeterLevels returns the raw signed 32-bit level values.
func (p *Scarlett2) GetMeterLevels() ([]int32, error) {
	payload, err := p.SendCommand(S2GetMeterLevels, nil)
	if err != nil {
		return nil, err
	}

	levels := make([]int32, 0, len(payload)/4)
	for i := 0; i+4 <= len(payload); i += 4 {
		levels = append(levels, int32(binary.LittleEndian.Uint32(payload[i:i+4])))
	}
	return levels, nil
}

// GetMixerVolume reads the 16-bit volume units of one mixer input.
func (p *Scarlett2) GetMixerVolume(input uint16) (uint16, error) {
	data := binary.LittleEndian.AppendUint16(nil, input)
	payload, err := p.SendCommand(S2GetMixer, data)
	if err != nil {
		return 0, err
	}
	if len(payload) < 2 {
		return 0, &core.ProtocolError{Op: "scarlett2", Msg: "mixer response too short", FromDevice: true}
	}
	return binary.LittleEndian.Uint16(payload[0:2]), nil
}

// SetMixerVolume writes the 16-bit volume units of one mixer input.
func (p *Scarlett2) SetMixerVolume(input uint16, volume uint16) error {
	data := binary.LittleEndian.AppendUint16(nil, input)
	data = binary.LittleEndian.AppendUint16(data, volume)
	_, err := p.SendCommand(S2SetMixer, data)
	return err
}

// Config and routing payloads are device-specific; this layer passes the
// bytes through untouched.

func (p *Scarlett2) GetConfigRaw(data []byte) ([]byte, error) {
	return p.SendCommand(S2GetConfig, data)
}

func (p *Scarlett2) SetConfigRaw(data []byte) error {
	_, err := p.SendCommand(S2SetConfig, data)
	return err
}

func (p *Scarlett2) GetRoutingRaw(data []byte) ([]byte, error) {
	return p.SendCommand(S2GetRouting, data)
}

func (p *Scarlett2) SetRoutingRaw(data []byte) error {
	_, err := p.SendCommand(S2SetRouting, data)
	return err
}

// Engine surface. Routing and mixer-state payload layouts are per-model;
// the typed views stay empty until a model-specific mapping exists.

func (p *Scarlett2) GetRouting() (core.RoutingMatrix, error) {
	return core.NewRoutingMatrix(), nil
}

func (p *Scarlett2) SetRouting(m *core.RoutingMatrix) error {
	return nil
}

func (p *Scarlett2) GetMixerState() (core.MixerState, error) {
	return core.NewMixerState(), nil
}

func (p *Scarlett2) SetChannelVolume(channel int, db float64) error {
	return p.SetMixerVolume(uint16(channel), DBToMixerVolume(db))
}

func (p *Scarlett2) GetLevelMeters() ([]core.LevelMeter, error) {
	levels, err := p.GetMeterLevels()
	if err != nil {
		return nil, err
	}
	meters := make([]core.LevelMeter, len(levels))
	for i, level := range levels {
		db := MeterLevelToDB(level)
		meters[i] = core.LevelMeter{LevelDB: db, PeakDB: db}
	}
	return meters, nil
}

func (p *Scarlett2) GetOutputVolume(output int) (int, error) {
	return 0, core.ErrNotSupported
}

func (p *Scarlett2) SetOutputVolume(output int, db int) error {
	return core.ErrNotSupported
}

func (p *Scarlett2) AdjustOutputVolume(output int, delta int) (int, error) {
	return 0, core.ErrNotSupported
}

func (p *Scarlett2) GetMute(output int) (bool, error) {
	return false, core.ErrNotSupported
}

func (p *Scarlett2) SetMute(output int, muted bool) error {
	return core.ErrNotSupported
}

func (p *Scarlett2) ToggleMute(output int) (bool, error) {
	return false, core.ErrNotSupported
}

// MeterLevelToDB converts a raw meter value to dB. Meters are in 8.24
// fixed point; zero or negative readings clamp to the floor.
func MeterLevelToDB(level int32) float64 {
	if level <= 0 {
		return core.MinDB
	}
	return 20 * math.Log10(float64(level)/16777216.0)
}

// DBToMixerVolume converts dB to 16-bit mixer volume units.
func DBToMixerVolume(db float64) uint16 {
	if db <= core.MinDB {
		return 0
	}
	linear := math.Pow(10, db/20)
	units := linear * 65535.0
	if units > 65535.0 {
		units = 65535.0
	}
	return uint16(units)
}

// MixerVolumeToDB converts 16-bit mixer volume units to dB. Zero maps to
// the -127 dB floor.
func MixerVolumeToDB(volume uint16) float64 {
	if volume == 0 {
		return core.MinDB
	}
	return 20 * math.Log10(float64(volume)/65535.0)
}
