// generator.go — Backend selection and prompt embedding.
//
// Every image handed to the user carries its prompt in a PNG text chunk
// inserted after IHDR, so a downloaded file still says how it was made.
package generator

import (
	"context"
	"log"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
)

// Options selects and configures a backend.
type Options struct {
	APIKey   string
	Model    string
	Offline  bool   // force the placeholder backend
	FontPath string // placeholder only
}

// New returns the Gemini backend, or the placeholder backend when Offline is
// set or no API key is available.
func New(ctx context.Context, opts Options) (Generator, error) {
	if opts.Offline || opts.APIKey == "" {
		if !opts.Offline {
			log.Printf("Warning: no API key configured, using the offline placeholder backend")
		}
		return NewPlaceholder(opts.FontPath)
	}
	return NewGemini(ctx, opts.APIKey, opts.Model)
}

// Annotate returns a copy of img with text stored under key. Images the
// injector cannot handle (not PNG, corrupt chunk stream, unusable key) are
// returned unchanged and the reason is logged.
func Annotate(img pngmeta.Blob, key, text string) pngmeta.Blob {
	out, err := pngmeta.InjectBytes(img.Data, img.MediaType, key, text)
	if err != nil {
		log.Printf("Warning: metadata not embedded: %v", err)
		return img
	}
	return *out
}
