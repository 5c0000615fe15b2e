package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/callistoworks/parley/pkg/store"
	"github.com/callistoworks/parley/pkg/types"
)

func newTestStore(t *testing.T, cfg Config) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, cfg), mr
}

func testSession(id string) *types.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &types.Session{
		ID:   id,
		Kind: types.KindInterrogation,
		Personality: types.NPCPersonality{
			Name: "Korrath Vane", Title: "Customs Officer", Trait: "By The Book", BaseSuspicion: 0.6,
		},
		Trust:     0.6,
		Status:    types.StatusOpen,
		TurnsLeft: 3,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	ctx := context.Background()

	sess := testSession("r1")
	if err := s.Create(ctx, sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, sess); !errors.Is(err, store.ErrSessionExists) {
		t.Fatalf("duplicate Create error = %v, want ErrSessionExists", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Personality.Name != "Korrath Vane" || got.TurnsLeft != 3 || got.Trust != 0.6 {
		t.Fatalf("round trip mangled session: %+v", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("Get error = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_UpdateOptimistic(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	ctx := context.Background()

	sess := testSession("r2")
	if err := s.Create(ctx, sess); err != nil {
		t.Fatalf("Create: %v", err)
	}

	prev := sess.UpdatedAt
	sess.Trust = 0.72
	sess.UpdatedAt = prev.Add(time.Second)
	if err := s.Update(ctx, sess, prev); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stale := sess.Clone()
	stale.Trust = 0.1
	if err := s.Update(ctx, stale, prev); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale Update error = %v, want ErrConflict", err)
	}

	got, _ := s.Get(ctx, "r2")
	if got.Trust != 0.72 {
		t.Fatalf("winning write lost: trust = %v", got.Trust)
	}
}

func TestStore_UpdateMissing(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	if err := s.Update(context.Background(), testSession("ghost"), time.Now()); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("Update error = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	ctx := context.Background()

	if err := s.Create(ctx, testSession("r3")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, "r3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "r3"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("second Delete error = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_TTLExpiresIdleSessions(t *testing.T) {
	s, mr := newTestStore(t, Config{TTL: time.Minute})
	ctx := context.Background()

	if err := s.Create(ctx, testSession("r4")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := s.Get(ctx, "r4"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expired Get error = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_WriteRefreshesTTL(t *testing.T) {
	s, mr := newTestStore(t, Config{TTL: time.Minute})
	ctx := context.Background()

	sess := testSession("r5")
	if err := s.Create(ctx, sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	mr.FastForward(30 * time.Second)

	prev := sess.UpdatedAt
	sess.UpdatedAt = prev.Add(time.Second)
	if err := s.Update(ctx, sess, prev); err != nil {
		t.Fatalf("Update: %v", err)
	}

	mr.FastForward(45 * time.Second)
	if _, err := s.Get(ctx, "r5"); err != nil {
		t.Fatalf("session expired despite refresh: %v", err)
	}
}
