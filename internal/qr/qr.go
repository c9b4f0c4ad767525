// Package qr renders check-in credentials as QR code images.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 300

// DataURL renders content as a PNG QR code and returns it as a data URL
// suitable for direct embedding in an <img> tag.
func DataURL(content string) (string, error) {
	return DataURLSize(content, defaultSize)
}

// DataURLSize is DataURL with an explicit pixel size.
func DataURLSize(content string, size int) (string, error) {
	if content == "" {
		return "", fmt.Errorf("qr: empty content")
	}
	if size <= 0 {
		size = defaultSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
