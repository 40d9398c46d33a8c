package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshot (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	generation INTEGER NOT NULL,
	fetched_at TEXT    NOT NULL,
	payload    BLOB    NOT NULL
)`

// Store keeps the last applied record set so a restart can serve it before
// the first refresh completes. It implements pipeline.SnapshotStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	// A single connection serializes writers; SQLite locks the file anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save replaces the stored snapshot with set.
func (s *Store) Save(ctx context.Context, set domain.RecordSet) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshot (id, generation, fetched_at, payload) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			generation = excluded.generation,
			fetched_at = excluded.fetched_at,
			payload    = excluded.payload`,
		int64(set.Generation), set.FetchedAt.UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot. The boolean is false when nothing has
// been saved yet.
func (s *Store) Load(ctx context.Context) (domain.RecordSet, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshot WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RecordSet{}, false, nil
	}
	if err != nil {
		return domain.RecordSet{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	var set domain.RecordSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return domain.RecordSet{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return set, true, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
