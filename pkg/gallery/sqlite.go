// sqlite.go — Persistent store on an embedded SQLite database.
package gallery

import (
	"context"
	"database/sql"
	"time"

	"gitlab.com/tozd/go/errors"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is a Store persisted to a database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the gallery database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Errorf("opening sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Errorf("connecting to sqlite: %w", err)
	}

	for _, stmt := range append(pragmas(), schema()...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, errors.Errorf("initializing schema: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func pragmas() []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
}

func schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS images (
			id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			media_type TEXT NOT NULL,
			aspect_ratio TEXT NOT NULL DEFAULT '',
			image_size TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			data BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_created ON images(created_at DESC)`,
	}
}

func (s *SQLite) Add(ctx context.Context, item *Item) error {
	prepare(item)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (id, prompt, model, media_type, aspect_ratio, image_size, size, created_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Prompt, item.Model, item.MediaType, item.AspectRatio, item.ImageSize,
		item.Size, item.Created.UTC().Format(timeLayout), item.Data,
	)
	if err != nil {
		return errors.Errorf("inserting image: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, prompt, model, media_type, aspect_ratio, image_size, size, created_at, data
		FROM images WHERE id = ?`, id)

	var (
		it      Item
		created string
	)
	err := row.Scan(&it.ID, &it.Prompt, &it.Model, &it.MediaType, &it.AspectRatio, &it.ImageSize, &it.Size, &created, &it.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, errors.Errorf("querying image: %w", err)
	}
	if it.Created, err = time.Parse(timeLayout, created); err != nil {
		return nil, errors.Errorf("parsing created_at: %w", err)
	}
	return &it, nil
}

func (s *SQLite) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, model, media_type, aspect_ratio, image_size, size, created_at
		FROM images ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, errors.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	result := []Item{}
	for rows.Next() {
		var (
			it      Item
			created string
		)
		if err := rows.Scan(&it.ID, &it.Prompt, &it.Model, &it.MediaType, &it.AspectRatio, &it.ImageSize, &it.Size, &created); err != nil {
			return nil, errors.Errorf("scanning image: %w", err)
		}
		if it.Created, err = time.Parse(timeLayout, created); err != nil {
			return nil, errors.Errorf("parsing created_at: %w", err)
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return errors.Errorf("deleting image: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
