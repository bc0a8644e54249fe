package firmware

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scarlett-tools/scarlettd/core"
)

func buildImage(t *testing.T, vid, pid uint16, version uint32, payload []byte) []byte {
	t.Helper()
	raw := make([]byte, headerLen+len(payload))
	copy(raw[magicOff:], magic)
	binary.BigEndian.PutUint16(raw[vendorOff:], vid)
	binary.BigEndian.PutUint16(raw[productOff:], pid)
	binary.BigEndian.PutUint32(raw[versionOff:], version)
	binary.BigEndian.PutUint32(raw[lengthOff:], uint32(len(payload)))
	digest := sha256.Sum256(payload)
	copy(raw[digestOff:], digest[:])
	copy(raw[headerLen:], payload)
	return raw
}

func TestParseValidImage(t *testing.T) {
	payload := []byte("firmware payload bytes")
	raw := buildImage(t, core.VendorID, 0x821E, 2115, payload)

	img, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if img.VendorID != core.VendorID {
		t.Errorf("vendor 0x%04x", img.VendorID)
	}
	if img.ProductID != 0x821E {
		t.Errorf("product 0x%04x", img.ProductID)
	}
	if img.Version != 2115 {
		t.Errorf("version %d", img.Version)
	}
	if string(img.Data) != string(payload) {
		t.Error("payload mismatch")
	}

	model, ok := img.TargetModel()
	if !ok || model.Name() != "Scarlett 18i20 (4th Gen)" {
		t.Errorf("target model = %v, %v", model, ok)
	}
}

func TestParseEmptyPayload(t *testing.T) {
	raw := buildImage(t, core.VendorID, 0x821E, 1, nil)
	img, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Data) != 0 {
		t.Errorf("payload length %d", len(img.Data))
	}
}

func TestParseTruncatedHeader(t *testing.T) {
	_, err := Parse(make([]byte, headerLen-1))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Msg, "too short") {
		t.Errorf("msg = %q", verr.Msg)
	}
}

func TestParseBadMagic(t *testing.T) {
	raw := buildImage(t, core.VendorID, 0x821E, 1, []byte("x"))
	raw[0] = 'X'

	_, err := Parse(raw)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Msg, "magic") {
		t.Errorf("msg = %q", verr.Msg)
	}
}

func TestParseSizeMismatch(t *testing.T) {
	raw := buildImage(t, core.VendorID, 0x821E, 1, []byte("abcdef"))

	if _, err := Parse(raw[:len(raw)-2]); err == nil {
		t.Error("truncated payload accepted")
	}
	if _, err := Parse(append(raw, 0x00)); err == nil {
		t.Error("oversized payload accepted")
	}
}

func TestParseCorruptedPayload(t *testing.T) {
	raw := buildImage(t, core.VendorID, 0x821E, 1, []byte("firmware payload"))
	raw[headerLen+3] ^= 0x01 // flip one payload bit

	_, err := Parse(raw)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Msg, "digest") {
		t.Errorf("msg = %q", verr.Msg)
	}
}

func TestValidateForDevice(t *testing.T) {
	raw := buildImage(t, core.VendorID, 0x821E, 1, []byte("p"))
	img, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}

	target, _ := core.LookupProductID(0x821E)
	if err := img.ValidateForDevice(target); err != nil {
		t.Errorf("matching model rejected: %v", err)
	}

	other, _ := core.LookupProductID(0x8204)
	if err := img.ValidateForDevice(other); err == nil {
		t.Error("image for another model accepted")
	}
}

func TestReadFile(t *testing.T) {
	raw := buildImage(t, core.VendorID, 0x8204, 7, []byte("data"))
	path := filepath.Join(t.TempDir(), "test.bin")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	img, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Version != 7 {
		t.Errorf("version %d", img.Version)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("missing file accepted")
	}
}
