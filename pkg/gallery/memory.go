// memory.go — In-process store for a single UI session.
package gallery

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
)

// Memory is a Store backed by a map.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]*Item)}
}

func (m *Memory) Add(ctx context.Context, item *Item) error {
	prepare(item)
	stored := *item
	stored.Data = bytes.Clone(item.Data)

	m.mu.Lock()
	m.items[item.ID] = &stored
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*Item, error) {
	m.mu.RLock()
	it, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *it
	out.Data = bytes.Clone(it.Data)
	return &out, nil
}

func (m *Memory) List(ctx context.Context) ([]Item, error) {
	m.mu.RLock()
	result := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		summary := *it
		summary.Data = nil
		result = append(result, summary)
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b Item) int {
		if c := b.Created.Compare(a.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return errors.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.items, id)
	return nil
}

func (m *Memory) Close() error { return nil }
