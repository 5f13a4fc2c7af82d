package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		username   TEXT UNIQUE NOT NULL,
		password   TEXT NOT NULL DEFAULT '',
		wins       INTEGER NOT NULL DEFAULT 0 CHECK (wins >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS round_wins (
		round_id    UUID PRIMARY KEY,
		user_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS round_history (
		round_id     UUID PRIMARY KEY,
		user_id      UUID NOT NULL,
		outcome      TEXT NOT NULL,
		player_score INTEGER NOT NULL,
		dealer_score INTEGER NOT NULL,
		player_cards TEXT[] NOT NULL,
		dealer_cards TEXT[] NOT NULL,
		resolved_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_round_history_user ON round_history(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_wins ON users(wins DESC)`,
}

// EnsureSchema creates the tables the service needs if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
