package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — DDL ядра. service_preferences и subscribers мутируются
// внешним API; ядро их только читает, но объявляет, чтобы standalone
// развёртывание поднималось одной командой.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id           UUID PRIMARY KEY,
		type         TEXT NOT NULL,
		request      JSONB NOT NULL,
		attempts     INT NOT NULL DEFAULT 0,
		max_attempts INT NOT NULL,
		backoff      JSONB NOT NULL DEFAULT '{}'::jsonb,
		status       TEXT NOT NULL,
		last_error   TEXT,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status_created
		ON jobs (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_key TEXT PRIMARY KEY,
		adapter_id  TEXT NOT NULL,
		auth_state  JSONB NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS service_preferences (
		user_id     TEXT NOT NULL,
		capability  TEXT NOT NULL,
		adapter_ids JSONB NOT NULL,
		PRIMARY KEY (user_id, capability)
	)`,
	`CREATE TABLE IF NOT EXISTS subscribers (
		user_id           TEXT PRIMARY KEY,
		autopilot_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		plan              TEXT NOT NULL DEFAULT 'free',
		topic             TEXT NOT NULL DEFAULT '',
		params            JSONB
	)`,
}

// EnsureSchema применяет DDL. Все выражения идемпотентны.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
