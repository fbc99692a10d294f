// png.go — PNG encoding and output files.
package generator

import (
	"bytes"
	"image"
	"image/png"
	"os"

	"gitlab.com/tozd/go/errors"
)

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to output, creating or truncating it.
func WriteFile(output string, data []byte) error {
	if err := os.WriteFile(output, data, 0644); err != nil {
		return errors.Errorf("write %s: %w", output, err)
	}
	return nil
}
