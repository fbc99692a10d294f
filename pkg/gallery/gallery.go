// Package gallery keeps generated images so they can be browsed and
// downloaded later.
package gallery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"
)

// ErrNotFound is returned for unknown item IDs.
var ErrNotFound = errors.Base("gallery item not found")

// Item is one generated image with the request that produced it.
type Item struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	Model       string    `json:"model"`
	MediaType   string    `json:"mediaType"`
	AspectRatio string    `json:"aspectRatio,omitempty"`
	ImageSize   string    `json:"imageSize,omitempty"`
	Size        int       `json:"size"`
	Created     time.Time `json:"created"`
	Data        []byte    `json:"-"`
}

// Store persists gallery items. List returns newest first and leaves Data
// empty; Get returns the full item.
type Store interface {
	Add(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context) ([]Item, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// prepare fills in ID, timestamp and size for a new item.
func prepare(item *Item) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Created.IsZero() {
		item.Created = time.Now().UTC()
	}
	item.Size = len(item.Data)
}
