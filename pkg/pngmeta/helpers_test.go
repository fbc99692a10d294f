package pngmeta

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// ihdrData returns a 13-byte IHDR payload for a w×h 8-bit RGBA image.
func ihdrData(w, h uint32) []byte {
	b := make([]byte, 13)
	binary.BigEndian.PutUint32(b[0:4], w)
	binary.BigEndian.PutUint32(b[4:8], h)
	b[8] = 8 // bit depth
	b[9] = 6 // RGBA
	return b
}

// minimalPNG builds signature + IHDR + IEND.
func minimalPNG() []byte {
	var buf bytes.Buffer
	buf.Write(Signature)
	buf.Write(BuildChunk("IHDR", ihdrData(1, 1)))
	buf.Write(BuildChunk("IEND", nil))
	return buf.Bytes()
}

// encodedPNG returns a real, decodable PNG.
func encodedPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{200, 10, 10, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode PNG: %v", err)
	}
	return buf.Bytes()
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
