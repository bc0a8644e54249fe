package core

import (
	"context"
	"errors"
	"testing"

	"github.com/scarlett-tools/scarlettd/memorywriter"
)

type fakeBus struct {
	infos []USBInfo
	err   error
}

func (b *fakeBus) Enumerate() ([]USBInfo, error) {
	return b.infos, b.err
}

func testWriter(t *testing.T) *memorywriter.MemoryWriter {
	t.Helper()
	mw, err := memorywriter.New(100, 10, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	return mw
}

func TestScanResolvesIdentity(t *testing.T) {
	bus := &fakeBus{infos: []USBInfo{
		{Path: "usb-001-004", VendorID: VendorID, ProductID: 0x821E, Serial: "S123"},
	}}
	d := NewDetector(bus, testWriter(t))

	handles, err := d.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(handles) != 1 {
		t.Fatalf("expected 1 handle, got %d", len(handles))
	}
	h := handles[0]
	if h.ModelName != "Scarlett 18i20 (4th Gen)" {
		t.Errorf("model = %q", h.ModelName)
	}
	if h.Serial != "S123" || h.Path != "usb-001-004" || !h.Connected {
		t.Errorf("handle = %+v", h)
	}
}

func TestScanSkipsForeignAndUnknownDevices(t *testing.T) {
	bus := &fakeBus{infos: []USBInfo{
		{Path: "usb-001-002", VendorID: 0x1234, ProductID: 0x821E}, // wrong vendor
		{Path: "usb-001-003", VendorID: VendorID, ProductID: 0x0001},
		{Path: "usb-001-004", VendorID: VendorID, ProductID: 0x8204},
	}}
	d := NewDetector(bus, testWriter(t))

	handles, err := d.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(handles) != 1 {
		t.Fatalf("expected 1 handle, got %d", len(handles))
	}
	if handles[0].ModelName != "Scarlett 8i6 (1st Gen)" {
		t.Errorf("model = %q", handles[0].ModelName)
	}
}

func TestScanMissingSerial(t *testing.T) {
	bus := &fakeBus{infos: []USBInfo{
		{Path: "usb-001-004", VendorID: VendorID, ProductID: 0x8204, Serial: ""},
	}}
	d := NewDetector(bus, testWriter(t))

	handles, err := d.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if handles[0].Serial != "Unknown" {
		t.Errorf("serial = %q, want Unknown", handles[0].Serial)
	}
}

func TestScanPropagatesBusError(t *testing.T) {
	bus := &fakeBus{err: errors.New("bus gone")}
	d := NewDetector(bus, testWriter(t))

	if _, err := d.Scan(); err == nil {
		t.Fatal("expected error")
	}
}

func drainEvents(d *Detector) []HotplugEvent {
	var events []HotplugEvent
	for {
		select {
		case ev := <-d.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestFailedScanRetainsSnapshot(t *testing.T) {
	bus := &fakeBus{infos: []USBInfo{
		{Path: "usb-001-004", VendorID: VendorID, ProductID: 0x8204, Serial: "S1"},
	}}
	d := NewDetector(bus, testWriter(t))
	ctx := context.Background()

	d.tick(ctx)
	events := drainEvents(d)
	if len(events) != 1 || events[0].Type != DeviceConnected {
		t.Fatalf("first tick events = %v", events)
	}

	// enumeration failure: no spurious disconnects
	bus.err = errors.New("bus gone")
	d.tick(ctx)
	if events := drainEvents(d); len(events) != 0 {
		t.Fatalf("failed tick emitted %v", events)
	}

	// recovered with the same device: still no events
	bus.err = nil
	d.tick(ctx)
	if events := drainEvents(d); len(events) != 0 {
		t.Fatalf("recovered tick emitted %v", events)
	}

	// device actually gone now
	bus.infos = nil
	d.tick(ctx)
	events = drainEvents(d)
	if len(events) != 1 || events[0].Type != DeviceDisconnected {
		t.Fatalf("disconnect tick events = %v", events)
	}
	if events[0].Path != "usb-001-004" {
		t.Errorf("disconnect path = %q", events[0].Path)
	}
}

func handle(path string) DeviceHandle {
	return DeviceHandle{Path: path, Connected: true}
}

func TestDiffSnapshots(t *testing.T) {
	tests := []struct {
		name        string
		prev, next  []DeviceHandle
		connects    []string
		disconnects []string
	}{
		{
			name: "both empty",
		},
		{
			name:     "all new",
			next:     []DeviceHandle{handle("a"), handle("b")},
			connects: []string{"a", "b"},
		},
		{
			name:        "all gone",
			prev:        []DeviceHandle{handle("a"), handle("b")},
			disconnects: []string{"a", "b"},
		},
		{
			name: "no change",
			prev: []DeviceHandle{handle("a")},
			next: []DeviceHandle{handle("a")},
		},
		{
			name:        "swap",
			prev:        []DeviceHandle{handle("a")},
			next:        []DeviceHandle{handle("b")},
			connects:    []string{"b"},
			disconnects: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := diffSnapshots(tt.prev, tt.next)

			var connects, disconnects []string
			sawDisconnect := false
			for _, ev := range events {
				switch ev.Type {
				case DeviceConnected:
					if sawDisconnect {
						t.Error("connect emitted after a disconnect")
					}
					connects = append(connects, ev.Path)
					if ev.Device.Path != ev.Path {
						t.Error("connect event missing device")
					}
				case DeviceDisconnected:
					sawDisconnect = true
					disconnects = append(disconnects, ev.Path)
				}
			}

			if !equalStrings(connects, tt.connects) {
				t.Errorf("connects = %v, want %v", connects, tt.connects)
			}
			if !equalStrings(disconnects, tt.disconnects) {
				t.Errorf("disconnects = %v, want %v", disconnects, tt.disconnects)
			}
		})
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
