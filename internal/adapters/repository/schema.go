package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed by the store.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// The DDL is shared by Postgres and SQLite: timestamps are always written
// by the store, so no NOW() defaults are used.
const schema = `
CREATE TABLE IF NOT EXISTS participant (
    id TEXT PRIMARY KEY,
    canonical_name TEXT NOT NULL,
    display_name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_participant_canonical_name ON participant(canonical_name);

CREATE TABLE IF NOT EXISTS participant_alias (
    participant_id TEXT NOT NULL REFERENCES participant(id) ON DELETE CASCADE,
    alias_key TEXT NOT NULL,
    alias_text TEXT NOT NULL,
    usage_count INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (participant_id, alias_key)
);

CREATE INDEX IF NOT EXISTS idx_participant_alias_key ON participant_alias(alias_key);

CREATE TABLE IF NOT EXISTS championship (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('individual', 'team')),
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS rally (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    held_on TIMESTAMP NOT NULL,
    championship_id TEXT REFERENCES championship(id) ON DELETE SET NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rally_championship_id ON rally(championship_id);

CREATE TABLE IF NOT EXISTS rally_result (
    id TEXT PRIMARY KEY,
    rally_id TEXT NOT NULL REFERENCES rally(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    participant_name TEXT NOT NULL,
    participant_id TEXT REFERENCES participant(id) ON DELETE SET NULL,
    class TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0 CHECK (position >= 0),
    points INTEGER,
    total_time_ms BIGINT NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS submission (
    rally_id TEXT NOT NULL REFERENCES rally(id) ON DELETE CASCADE,
    idempotency_key TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (rally_id, idempotency_key)
);

CREATE INDEX IF NOT EXISTS idx_rally_result_rally_id ON rally_result(rally_id);
CREATE INDEX IF NOT EXISTS idx_rally_result_participant_id ON rally_result(participant_id);

CREATE TABLE IF NOT EXISTS team (
    id TEXT PRIMARY KEY,
    championship_id TEXT NOT NULL REFERENCES championship(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (championship_id, name)
);

CREATE TABLE IF NOT EXISTS team_member (
    team_id TEXT NOT NULL REFERENCES team(id) ON DELETE CASCADE,
    participant_id TEXT NOT NULL REFERENCES participant(id) ON DELETE CASCADE,
    PRIMARY KEY (team_id, participant_id)
);
`
