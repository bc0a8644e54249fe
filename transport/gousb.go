package transport

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/gousb"

	"github.com/scarlett-tools/scarlettd/core"
	"github.com/scarlett-tools/scarlettd/memorywriter"
)

// Direct local USB backend on top of gousb.

var ErrNotFound = errors.New("device not found")

const (
	usbConfigNum = 1
	pathFormat   = "usb-%03d-%03d" // bus, address
)

// Bus enumerates and opens Focusrite devices on the local USB stack.
type Bus struct {
	ctx *gousb.Context
	mw  *memorywriter.MemoryWriter
}

func NewBus(mw *memorywriter.MemoryWriter, debug int) *Bus {
	ctx := gousb.NewContext()
	ctx.Debug(debug)
	return &Bus{
		ctx: ctx,
		mw:  mw,
	}
}

func (b *Bus) Close() {
	b.mw.Log("bus close (should happen only on exit)")
	if err := b.ctx.Close(); err != nil {
		b.mw.Log("context close: " + err.Error())
	}
}

func pathToken(desc *gousb.DeviceDesc) string {
	return fmt.Sprintf(pathFormat, desc.Bus, desc.Address)
}

// Enumerate lists attached Focusrite devices. Devices are opened briefly to
// read the serial string; an unreadable serial is reported as empty, not an
// error.
func (b *Bus) Enumerate() ([]core.USBInfo, error) {
	b.mw.Log("enumerating")
	devs, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(core.VendorID)
	})
	defer func() {
		for _, d := range devs {
			if errC := d.Close(); errC != nil {
				b.mw.Log("close after enumerate: " + errC.Error())
			}
		}
	}()
	if err != nil && len(devs) == 0 {
		return nil, &core.TransportError{Op: "enumerate", Err: err}
	}

	infos := make([]core.USBInfo, 0, len(devs))
	for _, d := range devs {
		serial, errS := d.SerialNumber()
		if errS != nil {
			b.mw.Log("serial unreadable: " + errS.Error())
			serial = ""
		}
		infos = append(infos, core.USBInfo{
			Path:      pathToken(d.Desc),
			VendorID:  uint16(d.Desc.Vendor),
			ProductID: uint16(d.Desc.Product),
			Serial:    serial,
		})
	}
	b.mw.Log(fmt.Sprintf("enumerating done, %d devices", len(infos)))
	return infos, nil
}

// Open claims the device at the given path token. For devices that expose a
// vendor-specific interface (Gen4) the interface is claimed so class
// requests can address it; other generations talk to the default control
// pipe and no claim is needed.
func (b *Bus) Open(path string) (*Device, error) {
	b.mw.Log("open " + path)
	devs, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(core.VendorID) && pathToken(desc) == path
	})
	if err != nil && len(devs) == 0 {
		return nil, &core.TransportError{Op: "open", Err: err}
	}
	if len(devs) == 0 {
		return nil, ErrNotFound
	}
	// path tokens are unique per bus/address; close any duplicates
	for _, d := range devs[1:] {
		if errC := d.Close(); errC != nil {
			b.mw.Log("close duplicate: " + errC.Error())
		}
	}
	dev := devs[0]

	if err := dev.SetAutoDetach(true); err != nil {
		// not fatal, the claim below will fail if a driver holds the iface
		b.mw.Log("autodetach: " + err.Error())
	}

	t := &Device{
		dev:  dev,
		path: path,
		mw:   b.mw,
	}

	if num, ok := findVendorInterface(dev.Desc); ok {
		cfg, errC := dev.Config(usbConfigNum)
		if errC != nil {
			_ = dev.Close()
			return nil, &core.TransportError{Op: "config", Err: errC}
		}
		intf, errI := cfg.Interface(num, 0)
		if errI != nil {
			_ = cfg.Close()
			_ = dev.Close()
			return nil, &core.TransportError{Op: "claim", Err: errI}
		}
		b.mw.Log(fmt.Sprintf("claimed vendor interface %d", num))
		t.cfg = cfg
		t.intf = intf
		t.ifaceNum = num
	}

	return t, nil
}

// findVendorInterface locates the vendor-specific control interface of the
// first configuration, if the device has one.
func findVendorInterface(desc *gousb.DeviceDesc) (int, bool) {
	cfg, ok := desc.Configs[usbConfigNum]
	if !ok {
		return 0, false
	}
	for _, intf := range cfg.Interfaces {
		for _, alt := range intf.AltSettings {
			if alt.Class == gousb.ClassVendorSpec {
				return intf.Number, true
			}
		}
	}
	return 0, false
}

// Device is one open USB device. It implements Transport.
type Device struct {
	dev      *gousb.Device
	cfg      *gousb.Config
	intf     *gousb.Interface
	ifaceNum int
	path     string

	closed int32 // atomic

	mw *memorywriter.MemoryWriter
}

// InterfaceNumber is the claimed vendor interface, 0 when none was found.
// The FCP engine addresses its class requests to this interface.
func (d *Device) InterfaceNumber() int {
	return d.ifaceNum
}

func (d *Device) Path() string {
	return d.path
}

func (d *Device) Close() error {
	atomic.StoreInt32(&d.closed, 1)
	if d.intf != nil {
		d.intf.Close()
	}
	if d.cfg != nil {
		if err := d.cfg.Close(); err != nil {
			d.mw.Log("config close: " + err.Error())
		}
	}
	return d.dev.Close()
}

func (d *Device) checkOpen(op string) error {
	if atomic.LoadInt32(&d.closed) == 1 {
		return &core.TransportError{Op: op, Err: errors.New("closed device")}
	}
	return nil
}

func (d *Device) ControlOut(req ControlRequest, data []byte) (int, error) {
	if err := d.checkOpen("control out"); err != nil {
		return 0, err
	}
	d.mw.Log(fmt.Sprintf("control out type=0x%02x req=0x%02x val=0x%04x idx=0x%04x len=%d",
		req.RequestType, req.Request, req.Value, req.Index, len(data)))

	d.dev.ControlTimeout = req.Timeout
	n, err := d.dev.Control(req.RequestType, req.Request, req.Value, req.Index, data)
	if err != nil {
		return 0, d.transferError("control out", err)
	}
	return n, nil
}

func (d *Device) ControlIn(req ControlRequest, length int) ([]byte, error) {
	if err := d.checkOpen("control in"); err != nil {
		return nil, err
	}
	d.mw.Log(fmt.Sprintf("control in type=0x%02x req=0x%02x val=0x%04x idx=0x%04x len=%d",
		req.RequestType, req.Request, req.Value, req.Index, length))

	buf := make([]byte, length)
	d.dev.ControlTimeout = req.Timeout
	n, err := d.dev.Control(req.RequestType, req.Request, req.Value, req.Index, buf)
	if err != nil {
		return nil, d.transferError("control in", err)
	}
	return buf[:n], nil
}

func (d *Device) BulkOut(endpoint byte, data []byte) (int, error) {
	if err := d.checkOpen("bulk out"); err != nil {
		return 0, err
	}
	if d.intf == nil {
		return 0, core.ErrNotSupported
	}
	ep, err := d.intf.OutEndpoint(int(endpoint & 0x7f))
	if err != nil {
		return 0, &core.TransportError{Op: "bulk out", Err: err}
	}
	n, err := ep.Write(data)
	if err != nil {
		return n, d.transferError("bulk out", err)
	}
	return n, nil
}

func (d *Device) BulkIn(endpoint byte, length int) ([]byte, error) {
	if err := d.checkOpen("bulk in"); err != nil {
		return nil, err
	}
	if d.intf == nil {
		return nil, core.ErrNotSupported
	}
	ep, err := d.intf.InEndpoint(int(endpoint & 0x7f))
	if err != nil {
		return nil, &core.TransportError{Op: "bulk in", Err: err}
	}
	buf := make([]byte, length)
	n, err := ep.Read(buf)
	if err != nil {
		return nil, d.transferError("bulk in", err)
	}
	return buf[:n], nil
}

// IsConnected is advisory; a disconnect may only show up as a failed
// transfer.
func (d *Device) IsConnected() bool {
	return atomic.LoadInt32(&d.closed) == 0
}

func (d *Device) Name() string {
	return "Direct USB"
}

func (d *Device) transferError(op string, err error) error {
	if isDisconnectError(err) {
		d.mw.Log("device probably disconnected")
		atomic.StoreInt32(&d.closed, 1)
	}
	return &core.TransportError{Op: op, Err: err}
}

func isDisconnectError(err error) bool {
	// according to libusb docs, disconnecting a device should cause only
	// ERROR_NO_DEVICE, but in real life it also causes IO, PIPE and OTHER
	var usbErr gousb.Error
	if !errors.As(err, &usbErr) {
		return false
	}
	return usbErr == gousb.ErrorNoDevice ||
		usbErr == gousb.ErrorIO ||
		usbErr == gousb.ErrorPipe ||
		usbErr == gousb.ErrorOther
}
