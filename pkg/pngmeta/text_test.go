package pngmeta

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"gitlab.com/tozd/go/errors"
)

func deflate(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTextEntriesAllKinds(t *testing.T) {
	ztxt := append([]byte("Comment\x00\x00"), deflate(t, "squeezed")...)
	itxt := append([]byte("Title\x00\x01\x00pt-BR\x00Título\x00"), deflate(t, "Banana Pro")...)

	src := concat(
		Signature,
		BuildChunk("IHDR", ihdrData(1, 1)),
		BuildChunk("tEXt", []byte("Author\x00Jo\xe3o")),
		BuildChunk("zTXt", ztxt),
		BuildChunk("iTXt", itxt),
		BuildChunk("tEXt", []byte("no separator")),
		BuildChunk("IEND", nil),
	)

	entries, err := TextEntries(src)
	if err != nil {
		t.Fatalf("TextEntries: %v", err)
	}
	want := []TextEntry{
		{Chunk: "tEXt", Keyword: "Author", Text: "João"},
		{Chunk: "zTXt", Keyword: "Comment", Text: "squeezed"},
		{Chunk: "iTXt", Keyword: "Title", Text: "Banana Pro", Language: "pt-BR", TranslatedKeyword: "Título"},
	}
	if len(entries) != len(want) {
		t.Fatalf("entries = %+v", entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestTextEntriesCorruptTail(t *testing.T) {
	src := concat(
		Signature,
		BuildChunk("IHDR", ihdrData(1, 1)),
		BuildChunk("tEXt", []byte("k\x00v")),
		[]byte{0, 0, 1, 0, 'I', 'D', 'A', 'T'},
	)
	entries, err := TextEntries(src)
	if !errors.Is(err, ErrCorruptPNG) {
		t.Errorf("err = %v, want ErrCorruptPNG", err)
	}
	if len(entries) != 1 || entries[0].Text != "v" {
		t.Errorf("entries before corruption = %+v", entries)
	}
}

func TestChunksRequiresSignature(t *testing.T) {
	if _, err := Chunks([]byte{137, 80, 78, 71, 0, 0, 0, 0}); !errors.Is(err, ErrNotPNG) {
		t.Errorf("err = %v, want ErrNotPNG", err)
	}
}

func TestChunksStopsAtIEND(t *testing.T) {
	src := concat(minimalPNG(), []byte("trailing data after IEND"))
	chunks, err := Chunks(src)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 2 || chunks[1].Type != "IEND" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestChunkValidDetectsCorruption(t *testing.T) {
	src := minimalPNG()
	src[8+8] ^= 0xFF // flip a bit inside IHDR data
	chunks, err := Chunks(src)
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].Valid() {
		t.Error("corrupted IHDR reported valid")
	}
	if !chunks[1].Valid() {
		t.Error("IEND reported invalid")
	}
}
