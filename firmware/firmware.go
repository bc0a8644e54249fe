// Package firmware parses and validates the Scarlett firmware container
// format. Nothing here talks to a device; flashing goes through the
// protocol layer once an image has passed validation.
package firmware

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/scarlett-tools/scarlettd/core"
)

// Container layout, all multi-byte fields big-endian:
//
//	[0:8)   magic "SCARLETT"
//	[8:10)  USB vendor ID
//	[10:12) USB product ID
//	[12:16) firmware version
//	[16:20) payload length
//	[20:52) SHA-256 of the payload
//	[52:)   payload
const (
	headerLen = 52

	magicOff   = 0
	vendorOff  = 8
	productOff = 10
	versionOff = 12
	lengthOff  = 16
	digestOff  = 20
)

var magic = []byte("SCARLETT")

// ValidationError means the file is not a usable firmware container. The
// image must be rejected whole; there is no partial recovery.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return "firmware: " + e.Msg
	}
	return fmt.Sprintf("firmware: %s: %s", e.Msg, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Image is a parsed and digest-verified firmware container.
type Image struct {
	VendorID  uint16
	ProductID uint16
	Version   uint32
	Data      []byte
}

// Parse validates a firmware container and returns the image. The header
// must be complete, the magic must match, the total size must equal header
// plus declared payload length exactly, and the payload digest must match
// the header. Any failure rejects the whole image.
func Parse(raw []byte) (*Image, error) {
	if len(raw) < headerLen {
		return nil, &ValidationError{
			Msg: fmt.Sprintf("file too short: %d bytes, header is %d", len(raw), headerLen),
		}
	}
	if !bytes.Equal(raw[magicOff:magicOff+len(magic)], magic) {
		return nil, &ValidationError{Msg: "bad magic"}
	}

	payloadLen := binary.BigEndian.Uint32(raw[lengthOff : lengthOff+4])
	if uint64(len(raw)) != headerLen+uint64(payloadLen) {
		return nil, &ValidationError{
			Msg: fmt.Sprintf("size mismatch: header declares %d payload bytes, file has %d",
				payloadLen, len(raw)-headerLen),
		}
	}

	payload := raw[headerLen:]
	digest := sha256.Sum256(payload)
	if !bytes.Equal(digest[:], raw[digestOff:digestOff+sha256.Size]) {
		return nil, &ValidationError{Msg: "payload digest mismatch, file is corrupted"}
	}

	return &Image{
		VendorID:  binary.BigEndian.Uint16(raw[vendorOff : vendorOff+2]),
		ProductID: binary.BigEndian.Uint16(raw[productOff : productOff+2]),
		Version:   binary.BigEndian.Uint32(raw[versionOff : versionOff+4]),
		Data:      payload,
	}, nil
}

// ReadFile loads and parses a firmware container from disk.
func ReadFile(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ValidationError{Msg: "reading file", Err: err}
	}
	return Parse(raw)
}

// ValidateForDevice checks that the image targets the given model. A
// firmware built for one model must never reach another.
func (img *Image) ValidateForDevice(model core.Model) error {
	if img.VendorID != core.VendorID {
		return &ValidationError{
			Msg: fmt.Sprintf("image targets vendor 0x%04x, expected 0x%04x", img.VendorID, core.VendorID),
		}
	}
	if img.ProductID != model.ProductID() {
		return &ValidationError{
			Msg: fmt.Sprintf("image targets product 0x%04x, device %q is 0x%04x",
				img.ProductID, model.Name(), model.ProductID()),
		}
	}
	return nil
}

// TargetModel resolves the image's product ID against the model table.
func (img *Image) TargetModel() (core.Model, bool) {
	if img.VendorID != core.VendorID {
		return 0, false
	}
	return core.LookupProductID(img.ProductID)
}
