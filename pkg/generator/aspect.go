// aspect.go — Supported aspect ratios and output sizes.
package generator

import (
	"slices"

	"gitlab.com/tozd/go/errors"
)

// AspectRatios maps an aspect ratio to its [width, height] at 1K.
var AspectRatios = map[string][2]int{
	"1:1":  {1024, 1024},
	"2:3":  {848, 1264},
	"3:2":  {1264, 848},
	"3:4":  {896, 1200},
	"4:3":  {1200, 896},
	"4:5":  {928, 1152},
	"5:4":  {1152, 928},
	"9:16": {768, 1376},
	"16:9": {1376, 768},
	"21:9": {1584, 672},
}

// ImageSizes maps a size label to its scale factor relative to 1K.
var ImageSizes = map[string]int{
	"1K": 1,
	"2K": 2,
	"4K": 4,
}

// Validate checks the request's prompt, aspect ratio and size.
func (r Request) Validate() error {
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	if _, ok := AspectRatios[r.AspectRatio]; r.AspectRatio != "" && !ok {
		return errors.Errorf("%w: %q (use one of %v)", ErrUnsupportedAspect, r.AspectRatio, sortedKeys(AspectRatios))
	}
	if _, ok := ImageSizes[r.ImageSize]; r.ImageSize != "" && !ok {
		return errors.Errorf("%w: %q (use one of %v)", ErrUnsupportedSize, r.ImageSize, sortedKeys(ImageSizes))
	}
	return nil
}

// Dimensions returns the pixel size for an aspect ratio and size label.
// Empty values default to 1:1 and 1K.
func Dimensions(aspect, size string) (w, h int, err error) {
	if aspect == "" {
		aspect = "1:1"
	}
	if size == "" {
		size = "1K"
	}
	dims, ok := AspectRatios[aspect]
	if !ok {
		return 0, 0, errors.Errorf("%w: %q", ErrUnsupportedAspect, aspect)
	}
	scale, ok := ImageSizes[size]
	if !ok {
		return 0, 0, errors.Errorf("%w: %q", ErrUnsupportedSize, size)
	}
	return dims[0] * scale, dims[1] * scale, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
