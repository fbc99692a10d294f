package refimage

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"strings"
	"testing"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/image/bmp"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func dataURL(mime string, b []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}

func decodedSize(t *testing.T, b []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("output is not PNG: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestNormalizePassesSmallPNGThrough(t *testing.T) {
	src := pngBytes(t, testImage(40, 30))
	out, err := Normalize(dataURL("image/png", src), 64)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !bytes.Equal(out.Data, src) || out.MediaType != "image/png" {
		t.Errorf("small PNG was re-encoded (%s, %d bytes)", out.MediaType, len(out.Data))
	}
}

func TestNormalizeDownscales(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		edge         int
		wantW, wantH int
	}{
		{"landscape", 300, 100, 150, 150, 50},
		{"portrait", 90, 360, 120, 30, 120},
		{"square", 200, 200, 64, 64, 64},
		{"sliver", 1000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NormalizeBytes(pngBytes(t, testImage(tt.w, tt.h)), tt.edge)
			if err != nil {
				t.Fatalf("NormalizeBytes: %v", err)
			}
			if out.MediaType != "image/png" {
				t.Errorf("media type = %q", out.MediaType)
			}
			if w, h := decodedSize(t, out.Data); w != tt.wantW || h != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestNormalizeConvertsUnsupportedFormats(t *testing.T) {
	var gifBuf, bmpBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, testImage(20, 10), nil); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, testImage(20, 10)); err != nil {
		t.Fatal(err)
	}

	for name, data := range map[string][]byte{"gif": gifBuf.Bytes(), "bmp": bmpBuf.Bytes()} {
		out, err := NormalizeBytes(data, 0)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if w, h := decodedSize(t, out.Data); w != 20 || h != 10 {
			t.Errorf("%s: size = %dx%d", name, w, h)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	if _, err := NormalizeBytes([]byte("plain text, not an image"), 0); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
	if _, err := NormalizeBytes(make([]byte, MaxBytes+1), 0); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

// hugeHeaderPNG is a valid 1x1 PNG whose IHDR claims w x h pixels.
func hugeHeaderPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	b := pngBytes(t, testImage(1, 1))
	binary.BigEndian.PutUint32(b[16:], w)
	binary.BigEndian.PutUint32(b[20:], h)
	binary.BigEndian.PutUint32(b[29:], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestRejectsOversizedDimensions(t *testing.T) {
	huge := hugeHeaderPNG(t, 60000, 60000)
	if cfg, err := png.DecodeConfig(bytes.NewReader(huge)); err != nil || cfg.Width != 60000 {
		t.Fatalf("test image header: %+v, %v", cfg, err)
	}

	if _, err := NormalizeBytes(huge, 0); !errors.Is(err, ErrTooLarge) {
		t.Errorf("NormalizeBytes err = %v, want ErrTooLarge", err)
	}
	if _, err := Prepare([]string{dataURL("image/png", huge)}, 0); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Prepare err = %v, want ErrTooLarge", err)
	}
	if _, err := Thumbnail(huge, 64); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Thumbnail err = %v, want ErrTooLarge", err)
	}
}

func TestPrepare(t *testing.T) {
	u := dataURL("image/png", pngBytes(t, testImage(8, 8)))

	refs, err := Prepare([]string{u, u}, 0)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("refs = %d, want 2", len(refs))
	}

	many := make([]string, MaxReferences+1)
	for i := range many {
		many[i] = u
	}
	if _, err := Prepare(many, 0); !errors.Is(err, ErrTooMany) {
		t.Errorf("err = %v, want ErrTooMany", err)
	}

	_, err = Prepare([]string{u, "data:image/png;base64,!!"}, 0)
	if err == nil || !strings.Contains(err.Error(), "reference 2") {
		t.Errorf("err = %v, want it to name reference 2", err)
	}
}

func TestThumbnail(t *testing.T) {
	thumb, err := Thumbnail(pngBytes(t, testImage(256, 128)), 64)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if w, h := decodedSize(t, thumb); w != 64 || h != 32 {
		t.Errorf("size = %dx%d, want 64x32", w, h)
	}

	if _, err := Thumbnail(pngBytes(t, testImage(4, 4)), 0); err == nil {
		t.Error("edge 0 accepted")
	}
}
