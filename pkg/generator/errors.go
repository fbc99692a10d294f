// errors.go — Generation errors.
package generator

import "gitlab.com/tozd/go/errors"

var (
	ErrEmptyPrompt       = errors.Base("prompt is required")
	ErrMissingAPIKey     = errors.Base("API key is required")
	ErrUnsupportedAspect = errors.Base("unsupported aspect ratio")
	ErrUnsupportedSize   = errors.Base("unsupported image size")
	ErrNoImage           = errors.Base("no image data returned from model")
	ErrBlocked           = errors.Base("prompt blocked by the model")
)
