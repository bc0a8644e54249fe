package transport

import (
	"testing"
	"time"
)

func TestRequestTypeBytes(t *testing.T) {
	tests := []struct {
		name string
		req  ControlRequest
		want byte
	}{
		{"vendor out", VendorOut(0x00, 0, 0), 0x40},
		{"vendor in", VendorIn(0x00, 0, 0), 0xC0},
		{"class out", ClassOut(0x02, 0, 5), 0x21},
		{"class in", ClassIn(0x03, 0, 5), 0xA1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.req.RequestType != tt.want {
				t.Errorf("request type 0x%02x, want 0x%02x", tt.req.RequestType, tt.want)
			}
		})
	}
}

func TestRequestCarriesParameters(t *testing.T) {
	req := ClassOut(0x02, 0x1234, 0x0005)
	if req.Request != 0x02 || req.Value != 0x1234 || req.Index != 0x0005 {
		t.Errorf("request = %+v", req)
	}
	if req.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", req.Timeout, DefaultTimeout)
	}
}

func TestWithTimeout(t *testing.T) {
	req := VendorOut(0x00, 0, 0)
	slow := req.WithTimeout(30 * time.Second)

	if slow.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", slow.Timeout)
	}
	// original is unchanged
	if req.Timeout != DefaultTimeout {
		t.Errorf("original timeout mutated to %v", req.Timeout)
	}
}
