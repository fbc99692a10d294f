// text.go — Decode tEXt, zTXt and iTXt entries from a PNG stream.
package pngmeta

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding/charmap"
)

// maxInflated bounds decompressed zTXt/iTXt text.
const maxInflated = 16 << 20

// TextEntry is one keyword/text pair found in a PNG.
type TextEntry struct {
	Chunk             string `json:"chunk"` // tEXt, zTXt or iTXt
	Keyword           string `json:"keyword"`
	Text              string `json:"text"`
	Language          string `json:"language,omitempty"`
	TranslatedKeyword string `json:"translatedKeyword,omitempty"`
}

// TextEntries returns every text entry in file order. Entries that cannot be
// decoded are skipped; structural corruption is returned as an error along
// with the entries read so far.
func TextEntries(data []byte) ([]TextEntry, error) {
	chunks, err := Chunks(data)

	var entries []TextEntry
	for _, c := range chunks {
		var (
			e  TextEntry
			ok bool
		)
		switch c.Type {
		case "tEXt":
			e, ok = parseText(c.Data)
		case "zTXt":
			e, ok = parseCompressedText(c.Data)
		case "iTXt":
			e, ok = parseInternationalText(c.Data)
		default:
			continue
		}
		if ok {
			e.Chunk = c.Type
			entries = append(entries, e)
		}
	}
	return entries, err
}

// Lookup returns the text of the first entry with the given keyword.
func Lookup(data []byte, keyword string) (string, bool, error) {
	entries, err := TextEntries(data)
	for _, e := range entries {
		if e.Keyword == keyword {
			return e.Text, true, nil
		}
	}
	return "", false, err
}

func parseText(b []byte) (TextEntry, bool) {
	key, text, ok := bytes.Cut(b, []byte{0})
	if !ok || len(key) == 0 {
		return TextEntry{}, false
	}
	return TextEntry{Keyword: decodeLatin1(key), Text: decodeLatin1(text)}, true
}

func parseCompressedText(b []byte) (TextEntry, bool) {
	key, rest, ok := bytes.Cut(b, []byte{0})
	if !ok || len(key) == 0 || len(rest) < 1 || rest[0] != 0 {
		return TextEntry{}, false
	}
	text, err := inflate(rest[1:])
	if err != nil {
		return TextEntry{}, false
	}
	return TextEntry{Keyword: decodeLatin1(key), Text: decodeLatin1(text)}, true
}

func parseInternationalText(b []byte) (TextEntry, bool) {
	key, rest, ok := bytes.Cut(b, []byte{0})
	if !ok || len(key) == 0 || len(rest) < 2 {
		return TextEntry{}, false
	}
	compressed, method := rest[0], rest[1]
	lang, rest, ok := bytes.Cut(rest[2:], []byte{0})
	if !ok {
		return TextEntry{}, false
	}
	translated, text, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return TextEntry{}, false
	}
	if compressed != 0 {
		if method != 0 {
			return TextEntry{}, false
		}
		var err error
		if text, err = inflate(text); err != nil {
			return TextEntry{}, false
		}
	}
	return TextEntry{
		Keyword:           decodeLatin1(key),
		Text:              string(text),
		Language:          string(lang),
		TranslatedKeyword: string(translated),
	}, true
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Errorf("zlib header: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxInflated))
	if err != nil {
		return nil, errors.Errorf("inflate: %w", err)
	}
	return out, nil
}

// decodeLatin1 keeps valid UTF-8 as is (what browsers and this package write
// by default) and otherwise reads the bytes as ISO-8859-1.
func decodeLatin1(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
