// inject.go — Insert a text metadata chunk directly after IHDR.
package pngmeta

import (
	"bytes"
	"encoding/binary"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding/charmap"
)

// MaxKeywordLen is the longest keyword a PNG text chunk may carry.
const MaxKeywordLen = 79

// Option adjusts how the text chunk is built.
type Option func(*options)

type options struct {
	latin1        bool
	international bool
	language      string
}

// WithLatin1 transcodes keyword and text to ISO-8859-1, as the PNG
// specification requires for tEXt. Without it the UTF-8 bytes of the
// strings are stored as given.
func WithLatin1() Option {
	return func(o *options) { o.latin1 = true }
}

// WithInternational emits an uncompressed iTXt chunk carrying UTF-8 text
// tagged with the given language (may be empty).
func WithInternational(language string) Option {
	return func(o *options) {
		o.international = true
		o.language = language
	}
}

// Inject decodes a base64 data URL and returns the image with a tEXt chunk
// holding key and text inserted right after IHDR.
//
// Input that does not start with the PNG magic bytes comes back unchanged
// with its original media type. Malformed data URLs fail with
// ErrMalformedDataURL; chunk lengths that run past the buffer fail with
// ErrCorruptPNG.
func Inject(imageDataURL, key, text string, opts ...Option) (*Blob, error) {
	src, err := ParseDataURL(imageDataURL)
	if err != nil {
		return nil, err
	}
	return InjectBytes(src.Data, src.MediaType, key, text, opts...)
}

// InjectBytes is Inject for already-decoded content. The returned blob never
// aliases data.
func InjectBytes(data []byte, mediaType, key, text string, opts ...Option) (*Blob, error) {
	if !IsPNG(data) {
		return &Blob{Data: bytes.Clone(data), MediaType: mediaType}, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	typ, payload, err := o.payload(key, text)
	if err != nil {
		return nil, err
	}
	chunk := BuildChunk(typ, payload)

	at, err := insertionOffset(data)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:at]...)
	out = append(out, chunk...)
	out = append(out, data[at:]...)
	return &Blob{Data: out, MediaType: MediaTypePNG}, nil
}

// BuildChunk assembles length ‖ type ‖ payload ‖ CRC(type ‖ payload).
func BuildChunk(typ string, payload []byte) []byte {
	out := make([]byte, 0, chunkOverhead+len(payload))
	out = binary.BigEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, typ...)
	out = append(out, payload...)
	return binary.BigEndian.AppendUint32(out, Checksum(out[4:]))
}

// insertionOffset walks chunks from the end of the signature and returns the
// offset just past IHDR, or len(data) when no IHDR is found.
func insertionOffset(data []byte) (int, error) {
	if len(data) < signatureLen {
		return 0, errors.Errorf("%w: %d bytes is shorter than the signature", ErrCorruptPNG, len(data))
	}
	off := signatureLen
	for off < len(data) {
		h, err := readChunkHeader(data, off)
		if err != nil {
			return 0, err
		}
		off += chunkOverhead + int(h.Length)
		if h.Type == "IHDR" {
			break
		}
	}
	return off, nil
}

// payload returns the chunk type and data for key and text.
func (o *options) payload(key, text string) (string, []byte, error) {
	kw, err := encodeKeyword(key, o.latin1 || o.international)
	if err != nil {
		return "", nil, err
	}

	if o.international {
		// keyword 0 compression-flag compression-method language 0 translated-keyword 0 text
		p := make([]byte, 0, len(kw)+len(o.language)+len(text)+5)
		p = append(p, kw...)
		p = append(p, 0, 0, 0)
		p = append(p, o.language...)
		p = append(p, 0, 0)
		p = append(p, text...)
		return "iTXt", p, nil
	}

	body := []byte(text)
	if o.latin1 {
		if body, err = charmap.ISO8859_1.NewEncoder().Bytes(body); err != nil {
			return "", nil, errors.Errorf("%w: %s", ErrUnencodableText, err)
		}
	}
	p := make([]byte, 0, len(kw)+1+len(body))
	p = append(p, kw...)
	p = append(p, 0)
	p = append(p, body...)
	return "tEXt", p, nil
}

func encodeKeyword(key string, latin1 bool) ([]byte, error) {
	kw := []byte(key)
	if latin1 {
		var err error
		if kw, err = charmap.ISO8859_1.NewEncoder().Bytes(kw); err != nil {
			return nil, errors.Errorf("%w: %q is not Latin-1", ErrInvalidKeyword, key)
		}
	}
	switch {
	case len(kw) == 0:
		return nil, errors.Errorf("%w: empty", ErrInvalidKeyword)
	case len(kw) > MaxKeywordLen:
		return nil, errors.Errorf("%w: %d bytes, limit is %d", ErrInvalidKeyword, len(kw), MaxKeywordLen)
	case bytes.IndexByte(kw, 0) >= 0:
		return nil, errors.Errorf("%w: contains NUL", ErrInvalidKeyword)
	}
	return kw, nil
}
