// color.go — Placeholder background colours.
package generator

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
)

// ParseColor parses a "#rrggbb" string.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, errors.Errorf("invalid color %q: expected 6-char hex", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, errors.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// PromptColor derives a stable, fairly dark background from the prompt so
// the same prompt always renders the same placeholder.
func PromptColor(prompt string) color.RGBA {
	h := pngmeta.Checksum([]byte(prompt))
	return color.RGBA{
		R: 32 + uint8(h>>16)%96,
		G: 32 + uint8(h>>8)%96,
		B: 32 + uint8(h)%96,
		A: 255,
	}
}

// NewSolidImage creates a uniform solid-color image using draw.Draw (O(1) fill).
func NewSolidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// contrastColor picks black or white text for a background.
func contrastColor(bg color.RGBA) color.RGBA {
	luma := (299*int(bg.R) + 587*int(bg.G) + 114*int(bg.B)) / 1000
	if luma > 140 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
