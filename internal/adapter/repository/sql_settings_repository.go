package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tradeboard/internal/domain/repository"
	"tradeboard/pkg/errors"
)

type sqlSettingsRepository struct {
	db *sql.DB
}

func NewSQLSettingsRepository(db *sql.DB) repository.SettingsRepository {
	return &sqlSettingsRepository{db: db}
}

func (r *sqlSettingsRepository) Get(ctx context.Context, key, defaultValue string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM trade_settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return defaultValue, errors.Internal("Failed to read setting", err)
	}
	return value, nil
}

func (r *sqlSettingsRepository) Set(ctx context.Context, key string, value interface{}) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO trade_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, fmt.Sprint(value), time.Now().UnixMilli())
	if err != nil {
		return errors.Internal("Failed to save setting", err)
	}
	return nil
}
