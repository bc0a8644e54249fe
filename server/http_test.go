package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scarlett-tools/scarlettd/core"
	"github.com/scarlett-tools/scarlettd/memorywriter"
)

func testWriter(t *testing.T) *memorywriter.MemoryWriter {
	t.Helper()
	mw, err := memorywriter.New(100, 10, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	return mw
}

func TestCorsValidator(t *testing.T) {
	v, err := corsValidator()
	if err != nil {
		t.Fatal(err)
	}

	allowed := []string{
		"http://localhost:8000",
		"https://localhost:8999",
		"http://localhost:5000",
		"http://127.0.0.1:8080",
	}
	for _, origin := range allowed {
		if !v(origin) {
			t.Errorf("%q should be allowed", origin)
		}
	}

	denied := []string{
		"",
		"http://localhost:9000",
		"https://example.com",
		"http://localhost:8000.evil.com",
	}
	for _, origin := range denied {
		if v(origin) {
			t.Errorf("%q should be denied", origin)
		}
	}
}

func TestSortEntries(t *testing.T) {
	entries := []entry{
		{Path: "usb-001-005"},
		{Path: "usb-001-002"},
		{Path: "usb-001-004"},
	}
	sortEntries(entries)
	if entries[0].Path != "usb-001-002" || entries[2].Path != "usb-001-005" {
		t.Errorf("entries = %v", entries)
	}
}

func TestResolveHandles(t *testing.T) {
	infos := []core.USBInfo{
		{Path: "usb-001-002", VendorID: core.VendorID, ProductID: 0x821E, Serial: "S1"},
		{Path: "usb-001-003", VendorID: core.VendorID, ProductID: 0x0001, Serial: "S2"},
		{Path: "usb-001-004", VendorID: core.VendorID, ProductID: 0x8204, Serial: ""},
	}

	handles := resolveHandles(infos, testWriter(t))
	if len(handles) != 2 {
		t.Fatalf("expected 2 handles, got %d", len(handles))
	}
	if handles[0].ModelName != "Scarlett 18i20 (4th Gen)" {
		t.Errorf("first model = %q", handles[0].ModelName)
	}
	if handles[1].Serial != "Unknown" {
		t.Errorf("serial = %q, want Unknown", handles[1].Serial)
	}
}

func TestOriginCheck(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := OriginCheck(map[string]string{
		"/status/":       "",
		"/status/log.gz": "http://" + serverAddr,
	})(ok)

	tests := []struct {
		path   string
		origin string
		want   int
	}{
		{"/status/", "", http.StatusOK},
		{"/status/", "https://example.com", http.StatusForbidden},
		{"/status/log.gz", "http://" + serverAddr, http.StatusOK},
		{"/status/log.gz", "", http.StatusForbidden},
		{"/other", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.path, nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != tt.want {
			t.Errorf("%s with origin %q: status %d, want %d", tt.path, tt.origin, w.Code, tt.want)
		}
		if tt.want == http.StatusOK && w.Header().Get("X-Frame-Options") != "DENY" {
			t.Errorf("%s: missing X-Frame-Options", tt.path)
		}
	}
}

func TestStatusTemplateRenders(t *testing.T) {
	data := &statusTemplateData{
		Version: "0.3.0",
		Devices: []statusTemplateDevice{
			{Model: "Scarlett 18i20 (4th Gen)", Serial: "S1", Path: "usb-001-002", Used: true, Session: "1"},
		},
		DeviceCount: 1,
		Log:         "log line\n",
	}
	w := httptest.NewRecorder()
	if err := statusTemplate.Execute(w, data); err != nil {
		t.Fatal(err)
	}
	body := w.Body.String()
	for _, want := range []string{"0.3.0", "Scarlett 18i20 (4th Gen)", "session 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("status page missing %q", want)
		}
	}
}
