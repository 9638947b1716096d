// Package pgstate keeps the ledger document in a single PostgreSQL JSONB row.
package pgstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aburayhan/cargo-erp/internal/persist"
)

const schema = `CREATE TABLE IF NOT EXISTS erp_state (
	id TEXT PRIMARY KEY,
	data JSONB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT NOW()
)`

// Store implements persist.StateStore on one row of erp_state.
type Store struct {
	pool *pgxpool.Pool
	key  string
}

// New binds the store to a pool. An empty key uses persist.DefaultStateKey.
func New(pool *pgxpool.Pool, key string) *Store {
	if key == "" {
		key = persist.DefaultStateKey
	}
	return &Store{pool: pool, key: key}
}

// EnsureSchema creates the state table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pgstate: ensure schema: %w", err)
	}
	return nil
}

// Load returns the stored document.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM erp_state WHERE id = $1`, s.key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persist.ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("pgstate: load: %w", err)
	}
	return data, nil
}

// Save upserts the document.
func (s *Store) Save(ctx context.Context, data []byte) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO erp_state (id, data, updated_at)
VALUES ($1, $2::jsonb, NOW())
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`, s.key, string(data))
	if err != nil {
		return fmt.Errorf("pgstate: save: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("pgstate: ping: %w", err)
	}
	return nil
}
