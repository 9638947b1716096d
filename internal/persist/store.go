// Package persist stores the ledger document in a remote database with a
// local fallback and schedules debounced background saves.
package persist

import (
	"context"
	"errors"
)

// Status reports how the last load or save went.
type Status string

const (
	// StatusLive means the remote store is in sync.
	StatusLive Status = "Live"
	// StatusOffline means only the local copy was read or written.
	StatusOffline Status = "Offline"
	// StatusError means neither store could be used.
	StatusError Status = "Error"
)

// DefaultStateKey is the row holding the ledger document.
const DefaultStateKey = "main_state"

var (
	// ErrNoState is returned by Load when the row does not exist yet.
	ErrNoState = errors.New("persist: no state stored")
	// ErrNoRemote is returned by operations that need the remote store.
	ErrNoRemote = errors.New("persist: no remote store configured")
)

// StateStore reads and writes a single JSON document.
type StateStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
}
