package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Timestamps are stored as unix milliseconds so the same statements run
// on sqlite and postgres.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS trade_posts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		guild_id TEXT NOT NULL,
		message_id TEXT NOT NULL UNIQUE,
		channel_id TEXT NOT NULL,
		expires_at BIGINT NOT NULL,
		selling TEXT,
		buying TEXT,
		offering TEXT,
		attachments TEXT NOT NULL DEFAULT '[]',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_posts_expires_at ON trade_posts (expires_at)`,
	`CREATE TABLE IF NOT EXISTS trade_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
}

// Migrate creates the trade tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, statement := range migrations {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
