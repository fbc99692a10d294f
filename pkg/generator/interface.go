// Package generator turns a prompt and optional reference images into images.
package generator

import (
	"context"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
)

// Request holds the parameters of one generation call.
type Request struct {
	Prompt      string
	References  []pngmeta.Blob // already normalized, see refimage
	AspectRatio string         // "16:9" etc.; empty lets the model decide
	ImageSize   string         // "1K", "2K", "4K"; empty lets the model decide
}

// Result is what a backend produced. Text carries any commentary the model
// returned alongside the images.
type Result struct {
	Images []pngmeta.Blob
	Text   string
	Model  string
}

// Generator is the interface for image backends.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
