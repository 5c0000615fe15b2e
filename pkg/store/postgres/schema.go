// Package postgres provides a PostgreSQL-backed session store.
//
// Sessions are split across two tables: a sessions row carries the scalar
// negotiation state plus the personality, claims and outcome as JSONB, and
// exchanges holds one row per scored turn. Exchange rows are append-only;
// concurrent writers are serialized through the optimistic updated_at check
// on the sessions row.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id           TEXT         PRIMARY KEY,
    kind         TEXT         NOT NULL,
    status       TEXT         NOT NULL,
    trust        DOUBLE PRECISION NOT NULL,
    turns_left   INT          NOT NULL,
    personality  JSONB        NOT NULL DEFAULT '{}',
    claims       JSONB        NOT NULL DEFAULT '[]',
    outcome      JSONB,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sessions_status
    ON sessions (status);
`

const ddlExchanges = `
CREATE TABLE IF NOT EXISTS exchanges (
    session_id      TEXT         NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    sequence        INT          NOT NULL,
    npc_prompt      TEXT         NOT NULL,
    player_response TEXT         NOT NULL,
    scores          JSONB        NOT NULL DEFAULT '{}',
    contradictions  JSONB        NOT NULL DEFAULT '[]',
    trust_after     DOUBLE PRECISION NOT NULL,
    provider        TEXT         NOT NULL DEFAULT '',
    scored_in_ns    BIGINT       NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (session_id, sequence)
);
`

// Migrate creates the required tables if they do not exist. It is idempotent
// and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlSessions, ddlExchanges} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
