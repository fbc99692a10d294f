package gallery

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/tozd/go/errors"
)

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "gallery.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func TestAddGet(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		item := &Item{Prompt: "a red fox", Model: "placeholder", MediaType: "image/png", AspectRatio: "16:9", Data: []byte{1, 2, 3}}
		if err := s.Add(ctx, item); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if item.ID == "" || item.Created.IsZero() || item.Size != 3 {
			t.Errorf("Add did not fill defaults: %+v", item)
		}

		got, err := s.Get(ctx, item.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Prompt != "a red fox" || got.AspectRatio != "16:9" || got.Model != "placeholder" || !bytes.Equal(got.Data, item.Data) {
			t.Errorf("Get = %+v", got)
		}
		if !got.Created.Equal(item.Created) {
			t.Errorf("created = %v, want %v", got.Created, item.Created)
		}

		if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestListNewestFirst(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
		for i, offset := range []time.Duration{0, 500 * time.Millisecond, time.Second} {
			item := &Item{Prompt: string(rune('a' + i)), MediaType: "image/png", Created: base.Add(offset), Data: []byte{byte(i)}}
			if err := s.Add(ctx, item); err != nil {
				t.Fatal(err)
			}
		}

		items, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var order string
		for _, it := range items {
			order += it.Prompt
			if it.Data != nil {
				t.Errorf("List returned data for %s", it.ID)
			}
		}
		if order != "cba" {
			t.Errorf("order = %q, want cba", order)
		}
	})
}

func TestDelete(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		item := &Item{Prompt: "x", MediaType: "image/png", Data: []byte{0}}
		if err := s.Add(ctx, item); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, item.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, item.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get after delete: %v", err)
		}
		if err := s.Delete(ctx, item.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete: %v", err)
		}
		items, _ := s.List(ctx)
		if len(items) != 0 {
			t.Errorf("items = %+v", items)
		}
	})
}

func TestMemoryCopiesData(t *testing.T) {
	m := NewMemory()
	data := []byte{1, 2, 3}
	item := &Item{Prompt: "x", Data: data}
	m.Add(context.Background(), item)
	data[0] = 9

	got, _ := m.Get(context.Background(), item.ID)
	if got.Data[0] != 1 {
		t.Error("store shares the caller's buffer")
	}
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gallery.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	item := &Item{Prompt: "persist me", MediaType: "image/png", Data: []byte("png")}
	if err := s.Add(ctx, item); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Prompt != "persist me" {
		t.Errorf("prompt = %q", got.Prompt)
	}
}
