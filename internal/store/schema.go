package store

import (
	"context"
	"fmt"
)

// Schema is applied idempotently at startup. One table per action variant,
// joined by session id, keeps each record narrow instead of one wide
// nullable-everything table. Action tables are append-only.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id           UUID PRIMARY KEY,
    title        TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS click_actions (
    id          UUID PRIMARY KEY,
    session_id  UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    turn_seq    INT NOT NULL,
    selector    TEXT NOT NULL,
    reasoning   TEXT NOT NULL DEFAULT '',
    page_url    TEXT NOT NULL DEFAULT '',
    page_markup TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS wait_actions (
    id               UUID PRIMARY KEY,
    session_id       UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    turn_seq         INT NOT NULL,
    duration_seconds INT NOT NULL,
    reasoning        TEXT NOT NULL DEFAULT '',
    page_url         TEXT NOT NULL DEFAULT '',
    page_markup      TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS message_actions (
    id          UUID PRIMARY KEY,
    session_id  UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    turn_seq    INT NOT NULL,
    body        TEXT NOT NULL,
    reasoning   TEXT NOT NULL DEFAULT '',
    page_url    TEXT NOT NULL DEFAULT '',
    page_markup TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS complete_actions (
    id          UUID PRIMARY KEY,
    session_id  UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    turn_seq    INT NOT NULL,
    summary     TEXT NOT NULL,
    reasoning   TEXT NOT NULL DEFAULT '',
    page_url    TEXT NOT NULL DEFAULT '',
    page_markup TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_click_actions_session ON click_actions (session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_wait_actions_session ON wait_actions (session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_message_actions_session ON message_actions (session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_complete_actions_session ON complete_actions (session_id, created_at);
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
