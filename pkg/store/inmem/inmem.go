// Package inmem provides an in-memory session store. It is the default for
// single-process deployments and for tests; sessions do not survive a restart.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/callistoworks/parley/pkg/store"
	"github.com/callistoworks/parley/pkg/types"
)

// Store keeps sessions in a map guarded by a mutex. Snapshots are deep-copied
// on the way in and out so callers can never mutate stored state directly.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{sessions: make(map[string]*types.Session)}
}

func (s *Store) Create(_ context.Context, sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return store.ErrSessionExists
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (s *Store) Update(_ context.Context, sess *types.Session, expected time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[sess.ID]
	if !ok {
		return store.ErrSessionNotFound
	}
	if !stored.UpdatedAt.Equal(expected) {
		return store.ErrConflict
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return store.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored sessions. Used by readiness reporting.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
