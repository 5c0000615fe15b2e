// Package store defines the session persistence contract. The engine defines
// the shape of a session; implementations own the storage technology.
// Snapshots are stored whole — a session is small and always read and written
// as a unit.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/callistoworks/parley/pkg/types"
)

var (
	// ErrSessionNotFound is returned when no session exists under the given ID.
	ErrSessionNotFound = errors.New("store: session not found")

	// ErrSessionExists is returned by Create when the ID is already taken.
	ErrSessionExists = errors.New("store: session already exists")

	// ErrConflict is returned by Update when the stored snapshot changed
	// since the caller read it. The caller should re-read and retry, or
	// surface the conflict; blind overwrites would corrupt turn ordering.
	ErrConflict = errors.New("store: concurrent modification")
)

// Store persists negotiation sessions keyed by session ID. Implementations
// must be safe for concurrent use and must never hand out aliases of their
// internal state.
type Store interface {
	// Create stores a new session. ErrSessionExists when the ID is taken.
	Create(ctx context.Context, s *types.Session) error

	// Get returns the session snapshot, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*types.Session, error)

	// Update replaces the stored snapshot. expected is the UpdatedAt value
	// the caller read; ErrConflict when the stored snapshot no longer
	// carries it.
	Update(ctx context.Context, s *types.Session, expected time.Time) error

	// Delete removes the session. ErrSessionNotFound when absent.
	Delete(ctx context.Context, id string) error
}
