package repository

import (
	"context"
	"time"

	"tradeboard/internal/domain/entity"
)

// ListingRepository is the source of truth for which listings are live.
// Every method is atomic for a single record. Lookups of a missing
// listing return an errors.NotFound AppError.
type ListingRepository interface {
	// Create assigns an ID when the listing has none and persists it.
	Create(ctx context.Context, listing *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	GetByMessageID(ctx context.Context, messageID string) (*entity.Listing, error)
	// ListExpired returns listings with ExpiresAt <= now.
	ListExpired(ctx context.Context, now time.Time) ([]*entity.Listing, error)
	// ListActive returns listings with ExpiresAt > now.
	ListActive(ctx context.Context, now time.Time) ([]*entity.Listing, error)
	Update(ctx context.Context, id string, update entity.ListingUpdate) error
	// Delete reports whether a record was actually removed.
	Delete(ctx context.Context, id string) (bool, error)
}
