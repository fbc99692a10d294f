// dataurl.go — Data URL decoding and the Blob type handed back to callers.
package pngmeta

import (
	"encoding/base64"
	"strings"
	"unicode"

	"gitlab.com/tozd/go/errors"
)

// MediaTypePNG is the media type of every injected image.
const MediaTypePNG = "image/png"

// Blob is a binary payload tagged with its media type.
type Blob struct {
	Data      []byte
	MediaType string
}

// DataURL encodes the blob as a base64 data URL.
func (b *Blob) DataURL() string {
	return "data:" + b.MediaType + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

// ParseDataURL decodes a "data:<mime>[;param];base64,<payload>" string.
// Padding is optional and whitespace in the payload is ignored, matching
// what browsers accept.
func ParseDataURL(s string) (*Blob, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return nil, errors.Errorf("%w: missing data: scheme", ErrMalformedDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.Errorf("%w: missing comma before payload", ErrMalformedDataURL)
	}

	params := strings.Split(meta, ";")
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))
	if mediaType == "" {
		mediaType = "text/plain"
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return nil, errors.Errorf("%w: payload is not base64", ErrMalformedDataURL)
	}

	payload = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, payload)
	// Unpadded payloads are completed; partial or excess padding is rejected.
	if n := len(payload) % 4; n != 0 && !strings.Contains(payload, "=") {
		payload += strings.Repeat("=", 4-n)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Errorf("%w: base64 payload: %s", ErrMalformedDataURL, err)
	}
	return &Blob{Data: data, MediaType: mediaType}, nil
}
