// Package redis provides a Redis-backed session store. Sessions are stored
// as JSON snapshots under one key each, so multiple engine replicas can
// share live state; an optional TTL expires abandoned sessions.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/callistoworks/parley/pkg/store"
	"github.com/callistoworks/parley/pkg/types"
)

const keyPrefix = "parley:session:"

// Config tunes the Redis store.
type Config struct {
	// TTL expires idle sessions. Zero means no expiry. Every write refreshes
	// the clock, so only abandoned conversations age out.
	TTL time.Duration
}

// Store implements store.Store on a go-redis universal client, so standalone,
// cluster and sentinel deployments all work.
type Store struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

var _ store.Store = (*Store)(nil)

// New wraps an existing client.
func New(client goredis.UniversalClient, cfg Config) *Store {
	return &Store{client: client, ttl: cfg.TTL}
}

// Dial connects to a standalone Redis at addr and verifies the connection.
func Dial(ctx context.Context, addr string, cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis store: ping %s: %w", addr, err)
	}
	return New(client, cfg), nil
}

// Ping reports connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func key(id string) string {
	return keyPrefix + id
}

func (s *Store) Create(ctx context.Context, sess *types.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis store: marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key(sess.ID), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis store: create session: %w", err)
	}
	if !ok {
		return store.ErrSessionExists
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*types.Session, error) {
	payload, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis store: get session: %w", err)
	}
	sess := new(types.Session)
	if err := json.Unmarshal(payload, sess); err != nil {
		return nil, fmt.Errorf("redis store: unmarshal session: %w", err)
	}
	return sess, nil
}

// Update replaces the stored snapshot under a WATCH so a concurrent writer
// cannot slip in between the timestamp check and the write.
func (s *Store) Update(ctx context.Context, sess *types.Session, expected time.Time) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis store: marshal session: %w", err)
	}
	k := key(sess.ID)

	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, goredis.Nil) {
			return store.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var stored struct {
			UpdatedAt time.Time `json:"updated_at"`
		}
		if err := json.Unmarshal(current, &stored); err != nil {
			return err
		}
		if !stored.UpdatedAt.Equal(expected) {
			return store.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, k, payload, s.ttl)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, store.ErrConflict):
		return err
	case errors.Is(err, goredis.TxFailedErr):
		// The key changed under the WATCH; same race, same answer.
		return store.ErrConflict
	default:
		return fmt.Errorf("redis store: update session: %w", err)
	}
}

func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis store: delete session: %w", err)
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}
