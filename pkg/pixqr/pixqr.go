// Package pixqr renders PIX copy-and-paste payloads as QR code PNGs so mobile
// clients can show a scannable code without a round-trip to the gateway.
package pixqr

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

var errEmptyPayload = errors.New("pix payload is required")

// Encode renders the PIX copy-and-paste string as a PNG.
func Encode(payload string, size int) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, errEmptyPayload
	}
	if size <= 0 {
		size = defaultSize
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// EncodeDataURL renders the payload as a data URL suitable for embedding in
// API responses when no object storage URL is available.
func EncodeDataURL(payload string, size int) (string, error) {
	png, err := Encode(payload, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
