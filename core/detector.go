package core

import (
	"context"
	"fmt"
	"time"

	"github.com/scarlett-tools/scarlettd/memorywriter"
)

// USBInfo describes one enumerated USB device, before identity resolution.
type USBInfo struct {
	Path      string // transport path token, stable across rescans
	VendorID  uint16
	ProductID uint16
	Serial    string // "Unknown" when the descriptor could not be read
}

// USBBus enumerates attached USB devices. Implemented by the transport
// package; kept as an interface here so the detector tests don't need USB.
type USBBus interface {
	Enumerate() ([]USBInfo, error)
}

// DeviceHandle is one physically attached, recognized unit. Handles are
// immutable; every scan produces a fresh set and the detector diffs the
// sets by path token.
type DeviceHandle struct {
	Model     Model  `json:"-"`
	ModelName string `json:"model"`
	Serial    string `json:"serial"`
	Path      string `json:"path"`
	Connected bool   `json:"connected"`
}

type EventType int

const (
	DeviceConnected EventType = iota
	DeviceDisconnected
)

// HotplugEvent is emitted by the monitor loop. Device is set for connect
// events; Path is set for both.
type HotplugEvent struct {
	Type   EventType
	Device DeviceHandle
	Path   string
}

const monitorInterval = time.Second

type Detector struct {
	bus    USBBus
	mw     *memorywriter.MemoryWriter
	events chan HotplugEvent

	// snapshot is owned by the Monitor goroutine; it is the only writer.
	snapshot []DeviceHandle
}

func NewDetector(bus USBBus, mw *memorywriter.MemoryWriter) *Detector {
	return &Detector{
		bus:    bus,
		mw:     mw,
		events: make(chan HotplugEvent, 16),
	}
}

// Events is the hotplug feed filled by Monitor.
func (d *Detector) Events() <-chan HotplugEvent {
	return d.events
}

// Scan enumerates the bus and resolves identities. Focusrite devices with
// an unrecognized product ID are logged and skipped, not an error.
func (d *Detector) Scan() ([]DeviceHandle, error) {
	infos, err := d.bus.Enumerate()
	if err != nil {
		return nil, err
	}

	handles := make([]DeviceHandle, 0, len(infos))
	for _, info := range infos {
		if info.VendorID != VendorID {
			continue
		}
		model, ok := LookupProductID(info.ProductID)
		if !ok {
			d.mw.Log(fmt.Sprintf("skipping unsupported Focusrite device, pid 0x%04x", info.ProductID))
			continue
		}
		serial := info.Serial
		if serial == "" {
			serial = "Unknown"
		}
		handles = append(handles, DeviceHandle{
			Model:     model,
			ModelName: model.Name(),
			Serial:    serial,
			Path:      info.Path,
			Connected: true,
		})
	}
	return handles, nil
}

// Monitor polls the bus once per second and emits connect/disconnect events
// until ctx is done. A failed scan is logged and the tick skipped; the
// previous snapshot is retained so a transient enumeration failure never
// emits spurious disconnects.
func (d *Detector) Monitor(ctx context.Context) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.mw.Log("monitor stopping")
			return
		case <-ticker.C:
		}
		d.tick(ctx)
	}
}

// tick runs one scan-diff-emit cycle. On scan failure the previous
// snapshot is kept untouched.
func (d *Detector) tick(ctx context.Context) {
	handles, err := d.Scan()
	if err != nil {
		d.mw.Log("scan failed, skipping tick: " + err.Error())
		return
	}

	for _, ev := range diffSnapshots(d.snapshot, handles) {
		select {
		case d.events <- ev:
		case <-ctx.Done():
			return
		}
	}
	d.snapshot = handles
}

// diffSnapshots derives hotplug events from two successive device sets,
// keyed by path token. All connects are emitted before all disconnects.
func diffSnapshots(prev, next []DeviceHandle) []HotplugEvent {
	seen := make(map[string]bool, len(prev))
	for _, h := range prev {
		seen[h.Path] = true
	}

	var events []HotplugEvent
	now := make(map[string]bool, len(next))
	for _, h := range next {
		now[h.Path] = true
		if !seen[h.Path] {
			events = append(events, HotplugEvent{
				Type:   DeviceConnected,
				Device: h,
				Path:   h.Path,
			})
		}
	}
	for _, h := range prev {
		if !now[h.Path] {
			events = append(events, HotplugEvent{
				Type: DeviceDisconnected,
				Path: h.Path,
			})
		}
	}
	return events
}
