// fonts.go - Font loading for placeholder rendering with an embedded fallback.
// Uses golang.org/x/image/font for OpenType rendering. Defaults to Go Regular
// when no custom font is given or the custom font cannot be loaded.
package generator

import (
	"log"
	"os"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontManager handles font loading with fallback.
type FontManager struct {
	parsed *opentype.Font
}

// NewFontManager creates a font manager with the specified font.
// If customPath is empty or invalid, uses embedded Go font.
func NewFontManager(customPath string) (*FontManager, error) {
	var fontData []byte
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			log.Printf("Warning: could not load font %q, using default: %v", customPath, err)
		} else {
			fontData = data
		}
	}
	if fontData == nil {
		fontData = goregular.TTF
	}

	parsed, err := opentype.Parse(fontData)
	if err != nil {
		return nil, errors.Errorf("parse font: %w", err)
	}
	return &FontManager{parsed: parsed}, nil
}

// Face returns a font.Face at the specified size (72 DPI).
func (fm *FontManager) Face(size float64) (font.Face, error) {
	face, err := opentype.NewFace(fm.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Errorf("create font face: %w", err)
	}
	return face, nil
}
