// errors.go — Sentinel errors for PNG metadata handling.
package pngmeta

import "gitlab.com/tozd/go/errors"

var (
	// ErrMalformedDataURL indicates the input is not a base64 data URL.
	ErrMalformedDataURL = errors.Base("malformed data URL")

	// ErrNotPNG indicates the stream does not start with the PNG signature.
	ErrNotPNG = errors.Base("not a PNG stream")

	// ErrCorruptPNG indicates a chunk header or length runs past the end of
	// the buffer. Callers fall back to the original content.
	ErrCorruptPNG = errors.Base("corrupt PNG structure")

	// ErrInvalidKeyword indicates a text keyword that cannot be stored:
	// empty, longer than 79 bytes, containing NUL, or not Latin-1 where required.
	ErrInvalidKeyword = errors.Base("invalid text keyword")

	// ErrUnencodableText indicates text that cannot be represented in Latin-1.
	ErrUnencodableText = errors.Base("text not representable in Latin-1")
)
