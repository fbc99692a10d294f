// chunk.go — Bounds-checked walk over the chunk sequence of a PNG stream.
package pngmeta

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bst "github.com/mixcode/binarystruct"
	"gitlab.com/tozd/go/errors"
)

const (
	signatureLen   = 8
	chunkHeaderLen = 8  // length + type
	chunkOverhead  = 12 // length + type + CRC
)

// Signature is the full 8-byte PNG magic number.
var Signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// magic is the prefix checked before injecting.
var magic = Signature[:4]

// IsPNG reports whether data starts with the PNG magic bytes {137, 80, 78, 71}.
func IsPNG(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// chunkHeader is the big-endian length and ASCII type preceding chunk data.
type chunkHeader struct {
	Length uint32 `binary:"uint32"`
	Type   string `binary:"[4]byte"`
}

// Chunk is a view of one chunk inside a PNG buffer. Data aliases the buffer.
type Chunk struct {
	Offset int // offset of the length field
	Length uint32
	Type   string
	Data   []byte
	CRC    uint32
}

// Valid reports whether the stored CRC matches type ‖ data.
func (c Chunk) Valid() bool {
	return c.CRC == Update(Checksum([]byte(c.Type)), c.Data)
}

// End returns the offset just past the chunk's CRC.
func (c Chunk) End() int {
	return c.Offset + chunkOverhead + int(c.Length)
}

func (c Chunk) String() string {
	return fmt.Sprintf("%s@%#x len=%d crc=%08X", c.Type, c.Offset, c.Length, c.CRC)
}

// readChunkHeader decodes the header at off and checks that the whole chunk,
// CRC included, lies inside data.
func readChunkHeader(data []byte, off int) (chunkHeader, error) {
	var h chunkHeader
	if len(data)-off < chunkHeaderLen {
		return h, errors.Errorf("%w: truncated chunk header at offset %d", ErrCorruptPNG, off)
	}
	if _, err := bst.Read(bytes.NewReader(data[off:off+chunkHeaderLen]), bst.BigEndian, &h); err != nil {
		return h, errors.Errorf("%w: chunk header at offset %d: %s", ErrCorruptPNG, off, err)
	}
	if remain := len(data) - off - chunkOverhead; remain < 0 || uint64(h.Length) > uint64(remain) {
		return h, errors.Errorf("%w: chunk %q at offset %d declares %d data bytes, %d available",
			ErrCorruptPNG, h.Type, off, h.Length, max(remain, 0))
	}
	return h, nil
}

// Chunks walks every chunk after the signature, stopping after IEND or at the
// end of the buffer.
func Chunks(data []byte) ([]Chunk, error) {
	if len(data) < signatureLen || !bytes.Equal(data[:signatureLen], Signature) {
		return nil, ErrNotPNG
	}

	var chunks []Chunk
	for off := signatureLen; off < len(data); {
		h, err := readChunkHeader(data, off)
		if err != nil {
			return chunks, err
		}
		start := off + chunkHeaderLen
		end := start + int(h.Length)
		c := Chunk{
			Offset: off,
			Length: h.Length,
			Type:   h.Type,
			Data:   data[start:end:end],
			CRC:    binary.BigEndian.Uint32(data[end:]),
		}
		chunks = append(chunks, c)
		if c.Type == "IEND" {
			break
		}
		off = c.End()
	}
	return chunks, nil
}
