package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/callistoworks/parley/pkg/store"
	"github.com/callistoworks/parley/pkg/types"
)

// Store is the PostgreSQL-backed session store. All methods are safe for
// concurrent use; the optimistic updated_at check on the sessions row keeps
// concurrent advances of the same session from interleaving.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New establishes a connection pool to the database at dsn and runs [Migrate]
// to ensure the schema exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Create(ctx context.Context, sess *types.Session) error {
	personality, claims, outcome, err := marshalSession(sess)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO sessions
		    (id, kind, status, trust, turns_left, personality, claims, outcome, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.pool.Exec(ctx, q,
		sess.ID,
		string(sess.Kind),
		string(sess.Status),
		sess.Trust,
		sess.TurnsLeft,
		personality,
		claims,
		outcome,
		sess.CreatedAt,
		sess.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrSessionExists
		}
		return fmt.Errorf("postgres store: create session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*types.Session, error) {
	const q = `
		SELECT id, kind, status, trust, turns_left, personality, claims, outcome, created_at, updated_at
		FROM   sessions
		WHERE  id = $1`

	var (
		sess        types.Session
		kind        string
		status      string
		personality []byte
		claims      []byte
		outcome     []byte
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&sess.ID,
		&kind,
		&status,
		&sess.Trust,
		&sess.TurnsLeft,
		&personality,
		&claims,
		&outcome,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get session: %w", err)
	}
	sess.Kind = types.Kind(kind)
	sess.Status = types.Status(status)
	if err := unmarshalSession(&sess, personality, claims, outcome); err != nil {
		return nil, err
	}

	turns, err := s.loadExchanges(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Turns = turns
	return &sess, nil
}

func (s *Store) Update(ctx context.Context, sess *types.Session, expected time.Time) error {
	personality, claims, outcome, err := marshalSession(sess)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		UPDATE sessions
		SET    status = $2, trust = $3, turns_left = $4, personality = $5,
		       claims = $6, outcome = $7, updated_at = $8
		WHERE  id = $1 AND updated_at = $9`

	tag, err := tx.Exec(ctx, q,
		sess.ID,
		string(sess.Status),
		sess.Trust,
		sess.TurnsLeft,
		personality,
		claims,
		outcome,
		sess.UpdatedAt,
		expected,
	)
	if err != nil {
		return fmt.Errorf("postgres store: update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, sess.ID).Scan(&exists); err != nil {
			return fmt.Errorf("postgres store: update session: %w", err)
		}
		if !exists {
			return store.ErrSessionNotFound
		}
		return store.ErrConflict
	}

	// Exchange rows are append-only; ON CONFLICT DO NOTHING makes re-writing
	// the existing prefix a no-op.
	const qx = `
		INSERT INTO exchanges
		    (session_id, sequence, npc_prompt, player_response, scores, contradictions, trust_after, provider, scored_in_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id, sequence) DO NOTHING`

	for _, t := range sess.Turns {
		scores, err := json.Marshal(t.Scores)
		if err != nil {
			return fmt.Errorf("postgres store: marshal scores: %w", err)
		}
		contradictions, err := json.Marshal(t.Contradictions)
		if err != nil {
			return fmt.Errorf("postgres store: marshal contradictions: %w", err)
		}
		if _, err := tx.Exec(ctx, qx,
			sess.ID,
			t.Sequence,
			t.NPCPrompt,
			t.PlayerResponse,
			scores,
			contradictions,
			t.TrustAfter,
			t.Provider,
			t.ScoredIn.Nanoseconds(),
		); err != nil {
			return fmt.Errorf("postgres store: write exchange: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres store: delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *Store) loadExchanges(ctx context.Context, sessionID string) ([]types.Exchange, error) {
	const q = `
		SELECT sequence, npc_prompt, player_response, scores, contradictions, trust_after, provider, scored_in_ns
		FROM   exchanges
		WHERE  session_id = $1
		ORDER  BY sequence`

	rows, err := s.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load exchanges: %w", err)
	}
	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Exchange, error) {
		var (
			e              types.Exchange
			scores         []byte
			contradictions []byte
			scoredNS       int64
		)
		if err := row.Scan(
			&e.Sequence,
			&e.NPCPrompt,
			&e.PlayerResponse,
			&scores,
			&contradictions,
			&e.TrustAfter,
			&e.Provider,
			&scoredNS,
		); err != nil {
			return types.Exchange{}, err
		}
		if err := json.Unmarshal(scores, &e.Scores); err != nil {
			return types.Exchange{}, err
		}
		if len(contradictions) > 0 {
			if err := json.Unmarshal(contradictions, &e.Contradictions); err != nil {
				return types.Exchange{}, err
			}
		}
		e.ScoredIn = time.Duration(scoredNS)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan exchanges: %w", err)
	}
	return turns, nil
}

func marshalSession(sess *types.Session) (personality, claims, outcome []byte, err error) {
	if personality, err = json.Marshal(sess.Personality); err != nil {
		return nil, nil, nil, fmt.Errorf("postgres store: marshal personality: %w", err)
	}
	if sess.Claims == nil {
		claims = []byte("[]")
	} else if claims, err = json.Marshal(sess.Claims); err != nil {
		return nil, nil, nil, fmt.Errorf("postgres store: marshal claims: %w", err)
	}
	if sess.Outcome != nil {
		if outcome, err = json.Marshal(sess.Outcome); err != nil {
			return nil, nil, nil, fmt.Errorf("postgres store: marshal outcome: %w", err)
		}
	}
	return personality, claims, outcome, nil
}

func unmarshalSession(sess *types.Session, personality, claims, outcome []byte) error {
	if err := json.Unmarshal(personality, &sess.Personality); err != nil {
		return fmt.Errorf("postgres store: unmarshal personality: %w", err)
	}
	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &sess.Claims); err != nil {
			return fmt.Errorf("postgres store: unmarshal claims: %w", err)
		}
	}
	if len(outcome) > 0 {
		sess.Outcome = new(types.OutcomeResult)
		if err := json.Unmarshal(outcome, sess.Outcome); err != nil {
			return fmt.Errorf("postgres store: unmarshal outcome: %w", err)
		}
	}
	return nil
}
