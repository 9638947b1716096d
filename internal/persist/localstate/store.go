// Package localstate keeps documents in a local SQLite file. It backs the
// ledger fallback copy and the business settings.
package localstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aburayhan/cargo-erp/internal/persist"
)

const schema = `CREATE TABLE IF NOT EXISTS erp_state (
	id TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// DB owns the SQLite handle.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("localstate: create dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("localstate: open: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("localstate: ensure schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Key returns a store bound to one row.
func (d *DB) Key(id string) *Store {
	return &Store{db: d.db, id: id}
}

// Store implements persist.StateStore for one row.
type Store struct {
	db *sql.DB
	id string
}

var _ persist.StateStore = (*Store)(nil)

// Load returns the row's document.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM erp_state WHERE id = ?`, s.id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persist.ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("localstate: load %s: %w", s.id, err)
	}
	return []byte(data), nil
}

// Save replaces the row's document.
func (s *Store) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO erp_state (id, data, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`, s.id, string(data))
	if err != nil {
		return fmt.Errorf("localstate: save %s: %w", s.id, err)
	}
	return nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
