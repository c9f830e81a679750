package repository

import "context"

type SettingsRepository interface {
	// Get returns defaultValue when key was never written.
	Get(ctx context.Context, key, defaultValue string) (string, error)
	// Set upserts the string form of value.
	Set(ctx context.Context, key string, value interface{}) error
}
