// placeholder.go — Offline backend that renders the prompt onto a solid card.
// Used when no API key is configured and in tests; output is deterministic
// for a given request.
package generator

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
)

// PlaceholderModel is reported as Result.Model by the offline backend.
const PlaceholderModel = "placeholder"

// Placeholder renders one image per request without any network access.
type Placeholder struct {
	fonts      *FontManager
	Background string // "#rrggbb"; empty derives a colour from the prompt
}

// NewPlaceholder creates an offline backend. fontPath may be empty.
func NewPlaceholder(fontPath string) (*Placeholder, error) {
	fm, err := NewFontManager(fontPath)
	if err != nil {
		return nil, err
	}
	return &Placeholder{fonts: fm}, nil
}

// Generate implements Generator.
func (p *Placeholder) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h, err := Dimensions(req.AspectRatio, req.ImageSize)
	if err != nil {
		return nil, err
	}

	bg := PromptColor(req.Prompt)
	if p.Background != "" {
		if bg, err = ParseColor(p.Background); err != nil {
			return nil, err
		}
	}
	img := NewSolidImage(w, h, bg)

	caption := req.Prompt
	if n := len(req.References); n > 0 {
		caption += fmt.Sprintf(" (+%d reference image%s)", n, plural(n))
	}
	if err := p.drawCaption(img, caption, contrastColor(bg)); err != nil {
		return nil, err
	}

	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &Result{
		Images: []pngmeta.Blob{{Data: data, MediaType: pngmeta.MediaTypePNG}},
		Model:  PlaceholderModel,
	}, nil
}

// drawCaption wraps text inside a padded box and draws it from the top.
func (p *Placeholder) drawCaption(img *image.RGBA, text string, col color.Color) error {
	b := img.Bounds()
	size := float64(b.Dx()) / 24
	face, err := p.fonts.Face(size)
	if err != nil {
		return err
	}
	defer face.Close()

	pad := b.Dx() / 16
	lineHeight := int(size * 1.5)
	y := pad
	for _, line := range wrapText(text, b.Dx()-2*pad, face) {
		y += lineHeight
		if y > b.Dy()-pad {
			break
		}
		drawString(img, line, pad, y, col, face)
	}
	return nil
}

// wrapText breaks text into lines that each fit within maxWidth pixels.
func wrapText(text string, maxWidth int, face font.Face) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	return append(lines, current)
}

func drawString(img *image.RGBA, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
