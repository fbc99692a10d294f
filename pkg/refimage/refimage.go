// Package refimage prepares pasted or uploaded reference images for a
// generation request and renders gallery thumbnails.
//
// Inputs arrive as data URLs in any format the browser produced (PNG, JPEG,
// GIF, WebP, BMP, TIFF). Oversized images are downscaled and re-encoded as PNG;
// everything else passes through byte for byte.
package refimage

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"gitlab.com/tozd/go/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
)

const (
	// MaxReferences is the most reference images one request may carry.
	MaxReferences = 14

	// MaxBytes is the largest decoded reference image accepted.
	MaxBytes = 20 << 20

	// MaxPixels bounds the declared dimensions of any image decoded here,
	// since decoding allocates the full pixel buffer up front.
	MaxPixels = 64 << 20

	// DefaultMaxEdge bounds the longest side of a reference image.
	DefaultMaxEdge = 2048
)

var (
	ErrTooMany     = errors.Base("too many reference images")
	ErrTooLarge    = errors.Base("reference image too large")
	ErrUnsupported = errors.Base("unsupported image format")
)

// passthrough lists formats the generation API accepts as they are.
var passthrough = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// Prepare normalizes a batch of reference data URLs.
func Prepare(dataURLs []string, maxEdge int) ([]pngmeta.Blob, error) {
	if len(dataURLs) > MaxReferences {
		return nil, errors.Errorf("%w: %d given, limit is %d", ErrTooMany, len(dataURLs), MaxReferences)
	}
	out := make([]pngmeta.Blob, 0, len(dataURLs))
	for i, u := range dataURLs {
		b, err := Normalize(u, maxEdge)
		if err != nil {
			return nil, errors.Errorf("reference %d: %w", i+1, err)
		}
		out = append(out, *b)
	}
	return out, nil
}

// Normalize decodes one data URL and returns an image the API accepts whose
// longest edge is at most maxEdge (DefaultMaxEdge when maxEdge <= 0).
func Normalize(dataURL string, maxEdge int) (*pngmeta.Blob, error) {
	src, err := pngmeta.ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	return NormalizeBytes(src.Data, maxEdge)
}

// NormalizeBytes is Normalize for raw image bytes.
func NormalizeBytes(data []byte, maxEdge int) (*pngmeta.Blob, error) {
	if len(data) > MaxBytes {
		return nil, errors.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, len(data), MaxBytes)
	}
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}

	cfg, format, err := decodeConfig(data)
	if err != nil {
		return nil, err
	}
	if mt, ok := passthrough[format]; ok && max(cfg.Width, cfg.Height) <= maxEdge {
		return &pngmeta.Blob{Data: bytes.Clone(data), MediaType: mt}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Errorf("decode %s: %w", format, err)
	}
	encoded, err := encodePNG(fit(img, maxEdge, draw.CatmullRom))
	if err != nil {
		return nil, err
	}
	return &pngmeta.Blob{Data: encoded, MediaType: pngmeta.MediaTypePNG}, nil
}

// Thumbnail decodes data and returns a PNG whose longest edge is at most edge.
func Thumbnail(data []byte, edge int) ([]byte, error) {
	if edge <= 0 {
		return nil, errors.Errorf("invalid thumbnail edge %d", edge)
	}
	if _, _, err := decodeConfig(data); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Errorf("%w: %s", ErrUnsupported, err)
	}
	return encodePNG(fit(img, edge, draw.ApproxBiLinear))
}

// decodeConfig reads the image header and rejects dimensions above MaxPixels.
func decodeConfig(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return cfg, format, errors.Errorf("%w: %s", ErrUnsupported, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return cfg, format, errors.Errorf("%w: %dx%d", ErrUnsupported, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return cfg, format, errors.Errorf("%w: %dx%d pixels, limit is %d", ErrTooLarge, cfg.Width, cfg.Height, MaxPixels)
	}
	return cfg, format, nil
}

// fit scales img down, preserving aspect ratio, so neither side exceeds edge.
func fit(img image.Image, edge int, scaler draw.Scaler) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if max(w, h) <= edge {
		return img
	}

	nw, nh := edge, edge
	if w >= h {
		nh = max(h*edge/w, 1)
	} else {
		nw = max(w*edge/h, 1)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	scaler.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
