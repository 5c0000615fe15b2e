// Package server owns the HTTP surface of the negotiation engine: session
// lifecycle endpoints, the live WebSocket feed, health probes and the
// Prometheus scrape handler.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/callistoworks/parley/internal/negotiation"
	"github.com/callistoworks/parley/internal/observe"
	"github.com/callistoworks/parley/pkg/store"
	"github.com/callistoworks/parley/pkg/types"
)

// SessionManager mediates between the HTTP layer, the negotiation engine and
// the session store. It serializes turns per session: the orchestrator
// requires single-threaded access to a session, and the per-ID mutex provides
// it within this process while the store's optimistic check covers other
// replicas.
type SessionManager struct {
	store   store.Store
	orch    *negotiation.Orchestrator
	metrics *observe.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionManager wires a manager. metrics may be nil, in which case the
// process-wide default instruments are used.
func NewSessionManager(st store.Store, orch *negotiation.Orchestrator, metrics *observe.Metrics) *SessionManager {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &SessionManager{
		store:   st,
		orch:    orch,
		metrics: metrics,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Create opens a new session. An empty id gets a generated one; a caller-
// supplied id that is already taken returns store.ErrSessionExists. The
// returned prompt is the NPC's opening line.
func (m *SessionManager) Create(ctx context.Context, id string, kind types.Kind) (*types.Session, string, error) {
	if id == "" {
		id = newSessionID()
	}
	sess, err := m.orch.NewSession(id, kind)
	if err != nil {
		return nil, "", err
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, "", err
	}
	m.metrics.ActiveSessions.Add(ctx, 1)
	observe.Logger(ctx).Info("session created",
		"session_id", sess.ID,
		"kind", string(kind),
		"npc", sess.Personality.Title+" "+sess.Personality.Name,
		"turn_budget", sess.TurnsLeft,
	)
	return sess, m.orch.PendingPrompt(sess), nil
}

// Get returns the session snapshot and, while it is still open, the NPC line
// the player should answer next.
func (m *SessionManager) Get(ctx context.Context, id string) (*types.Session, string, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	var prompt string
	if !sess.Resolved() {
		prompt = m.orch.PendingPrompt(sess)
	}
	return sess, prompt, nil
}

// Advance applies one player response to the session and persists the result.
func (m *SessionManager) Advance(ctx context.Context, id, response string) (*negotiation.TurnResult, *types.Session, error) {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	expected := sess.UpdatedAt

	start := time.Now()
	res, err := m.orch.Advance(ctx, sess, response)
	if err != nil {
		return nil, nil, err
	}
	if err := m.store.Update(ctx, sess, expected); err != nil {
		// The turn was computed but not persisted; surface the storage error
		// so the caller retries against fresh state.
		return nil, nil, fmt.Errorf("server: persist turn %d of %s: %w", res.Exchange.Sequence, id, err)
	}

	m.metrics.RecordTurn(ctx, string(sess.Kind), time.Since(start))
	if res.Outcome != nil {
		m.metrics.RecordSessionResolved(ctx, string(sess.Kind), string(res.Outcome.Decision), string(res.Outcome.Reason))
		m.metrics.ActiveSessions.Add(ctx, -1)
		m.dropLock(id)
	}
	return res, sess, nil
}

// Delete removes a session regardless of its state.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	if !sess.Resolved() {
		m.metrics.ActiveSessions.Add(ctx, -1)
	}
	m.dropLock(id)
	return nil
}

// Ping exposes the store's connectivity probe for readiness checks. Stores
// without a network backend report healthy.
func (m *SessionManager) Ping(ctx context.Context) error {
	if p, ok := m.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (m *SessionManager) sessionLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

func (m *SessionManager) dropLock(id string) {
	m.mu.Lock()
	delete(m.locks, id)
	m.mu.Unlock()
}

// newSessionID returns a random 16-byte hex identifier.
func newSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// fall back to a time-derived ID rather than crash a request.
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return "sess-" + hex.EncodeToString(b[:])
}

