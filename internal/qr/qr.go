// Package qr renders session join links as QR code data URLs that clients
// can drop straight into an image tag.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the pixel size used when the caller does not specify one
const DefaultSize = 256

// DataURL encodes a URL as a PNG QR code and returns it as a base64 data URL
func DataURL(url string, size int) (string, error) {
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
