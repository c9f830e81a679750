package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tradeboard/internal/domain/repository"
	"tradeboard/pkg/errors"
)

const redisSettingsKey = "tradeboard:settings"

type redisSettingsRepository struct {
	client *redis.Client
}

// NewRedisSettingsRepository keeps settings in a single redis hash.
func NewRedisSettingsRepository(client *redis.Client) repository.SettingsRepository {
	return &redisSettingsRepository{client: client}
}

func (r *redisSettingsRepository) Get(ctx context.Context, key, defaultValue string) (string, error) {
	value, err := r.client.HGet(ctx, redisSettingsKey, key).Result()
	if err == redis.Nil {
		return defaultValue, nil
	}
	if err != nil {
		return defaultValue, errors.Internal("Failed to read setting", err)
	}
	return value, nil
}

func (r *redisSettingsRepository) Set(ctx context.Context, key string, value interface{}) error {
	if err := r.client.HSet(ctx, redisSettingsKey, key, fmt.Sprint(value)).Err(); err != nil {
		return errors.Internal("Failed to save setting", err)
	}
	return nil
}
