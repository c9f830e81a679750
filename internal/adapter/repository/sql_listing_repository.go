package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"tradeboard/internal/domain/entity"
	"tradeboard/internal/domain/repository"
	"tradeboard/pkg/errors"
)

const listingColumns = `id, user_id, guild_id, message_id, channel_id, expires_at,
	selling, buying, offering, attachments, created_at, updated_at`

type sqlListingRepository struct {
	db *sql.DB
}

// NewSQLListingRepository stores listings in the trade_posts table. The
// queries use $N placeholders, which both sqlite and pgx accept.
func NewSQLListingRepository(db *sql.DB) repository.ListingRepository {
	return &sqlListingRepository{db: db}
}

func (r *sqlListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = time.Now()
	}
	listing.UpdatedAt = listing.CreatedAt
	if listing.Attachments == nil {
		listing.Attachments = []entity.Attachment{}
	}

	attachments, err := json.Marshal(listing.Attachments)
	if err != nil {
		return errors.Internal("Failed to encode attachments", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO trade_posts (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		listing.ID,
		listing.UserID,
		listing.GuildID,
		listing.MessageID,
		listing.ChannelID,
		listing.ExpiresAt.UnixMilli(),
		nullString(listing.Selling),
		nullString(listing.Buying),
		nullString(listing.Note),
		string(attachments),
		listing.CreatedAt.UnixMilli(),
		listing.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return errors.Internal("Failed to create listing", err)
	}
	return nil
}

func (r *sqlListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM trade_posts WHERE id = $1`, id)
	return scanListing(row)
}

func (r *sqlListingRepository) GetByMessageID(ctx context.Context, messageID string) (*entity.Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM trade_posts WHERE message_id = $1`, messageID)
	return scanListing(row)
}

func (r *sqlListingRepository) ListExpired(ctx context.Context, now time.Time) ([]*entity.Listing, error) {
	return r.list(ctx, `SELECT `+listingColumns+` FROM trade_posts
		WHERE expires_at <= $1 ORDER BY expires_at`, now.UnixMilli())
}

func (r *sqlListingRepository) ListActive(ctx context.Context, now time.Time) ([]*entity.Listing, error) {
	return r.list(ctx, `SELECT `+listingColumns+` FROM trade_posts
		WHERE expires_at > $1 ORDER BY expires_at`, now.UnixMilli())
}

func (r *sqlListingRepository) Update(ctx context.Context, id string, update entity.ListingUpdate) error {
	listing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	update.Apply(listing)

	result, err := r.db.ExecContext(ctx, `UPDATE trade_posts
		SET selling = $1, buying = $2, offering = $3, updated_at = $4
		WHERE id = $5`,
		nullString(listing.Selling),
		nullString(listing.Buying),
		nullString(listing.Note),
		time.Now().UnixMilli(),
		id,
	)
	if err != nil {
		return errors.Internal("Failed to update listing", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.NotFound("Listing", nil)
	}
	return nil
}

func (r *sqlListingRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trade_posts WHERE id = $1`, id)
	if err != nil {
		return false, errors.Internal("Failed to delete listing", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Internal("Failed to delete listing", err)
	}
	return affected > 0, nil
}

func (r *sqlListingRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Internal("Failed to query listings", err)
	}
	defer rows.Close()

	var listings []*entity.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("Failed to iterate listings", err)
	}
	return listings, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*entity.Listing, error) {
	var (
		listing                         entity.Listing
		expiresAt, createdAt, updatedAt int64
		selling, buying, offering       sql.NullString
		attachments                     string
	)

	err := row.Scan(
		&listing.ID,
		&listing.UserID,
		&listing.GuildID,
		&listing.MessageID,
		&listing.ChannelID,
		&expiresAt,
		&selling,
		&buying,
		&offering,
		&attachments,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Listing", err)
	}
	if err != nil {
		return nil, errors.Internal("Failed to read listing", err)
	}

	listing.Selling = selling.String
	listing.Buying = buying.String
	listing.Note = offering.String
	listing.ExpiresAt = time.UnixMilli(expiresAt)
	listing.CreatedAt = time.UnixMilli(createdAt)
	listing.UpdatedAt = time.UnixMilli(updatedAt)

	if err := json.Unmarshal([]byte(attachments), &listing.Attachments); err != nil {
		return nil, errors.Internal("Failed to parse attachments", err)
	}
	if listing.Attachments == nil {
		listing.Attachments = []entity.Attachment{}
	}
	return &listing, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
