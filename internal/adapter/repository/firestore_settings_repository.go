package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradeboard/internal/domain/entity"
	"tradeboard/internal/domain/repository"
	"tradeboard/pkg/errors"
)

const settingsCollection = "trade_settings"

type firestoreSettingsRepository struct {
	client *firestore.Client
}

func NewFirestoreSettingsRepository(client *firestore.Client) repository.SettingsRepository {
	return &firestoreSettingsRepository{client: client}
}

func (r *firestoreSettingsRepository) Get(ctx context.Context, key, defaultValue string) (string, error) {
	doc, err := r.client.Collection(settingsCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return defaultValue, nil
		}
		return defaultValue, errors.Internal("Failed to read setting", err)
	}

	var setting entity.Setting
	if err := doc.DataTo(&setting); err != nil {
		return defaultValue, errors.Internal("Failed to parse setting", err)
	}
	return setting.Value, nil
}

func (r *firestoreSettingsRepository) Set(ctx context.Context, key string, value interface{}) error {
	setting := entity.Setting{
		Key:       key,
		Value:     fmt.Sprint(value),
		UpdatedAt: time.Now(),
	}
	if _, err := r.client.Collection(settingsCollection).Doc(key).Set(ctx, setting); err != nil {
		return errors.Internal("Failed to save setting", err)
	}
	return nil
}
