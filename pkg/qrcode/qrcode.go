// Package qrcode renders QR code images for campaign collection links.
package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrEmptyContent is returned when content is empty or only whitespace.
	ErrEmptyContent = errors.New("qrcode: content cannot be empty")
	// ErrGenerationFailed is returned when the underlying encoder fails.
	ErrGenerationFailed = errors.New("qrcode: failed to generate image")
)

// DefaultSize is the image size in pixels used when none is specified.
const DefaultSize = 512

// PNG renders content as a QR code PNG of size x size pixels.
// Medium error correction keeps codes scannable when printed small.
func PNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrGenerationFailed, err)
	}
	return png, nil
}

// DataURI renders content as a QR code and returns it as a data URI
// suitable for direct use in an <img> src attribute.
func DataURI(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(png)), nil
}
