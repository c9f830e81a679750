package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard/internal/domain/entity"
	"tradeboard/internal/infrastructure/database"
	"tradeboard/pkg/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "trades.sqlite"), "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newListing(messageID string, expiresAt time.Time) *entity.Listing {
	return &entity.Listing{
		UserID:    "user-a",
		GuildID:   "guild-1",
		MessageID: messageID,
		ChannelID: "board",
		Selling:   "Skin A",
		Buying:    "Credits",
		Attachments: []entity.Attachment{
			{ID: "att-1", URL: "https://cdn.example.com/a.png", Name: "a.png", ContentType: "image/png"},
		},
		ExpiresAt: expiresAt,
		CreatedAt: expiresAt.Add(-time.Minute),
	}
}

func TestSQLListingRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLListingRepository(openTestDB(t))
	expiresAt := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())

	listing := newListing("msg-1", expiresAt)
	require.NoError(t, repo.Create(ctx, listing))
	require.NotEmpty(t, listing.ID)

	byID, err := repo.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "msg-1", byID.MessageID)
	assert.Equal(t, "Skin A", byID.Selling)
	assert.Equal(t, "", byID.Note)
	assert.True(t, expiresAt.Equal(byID.ExpiresAt))
	require.Len(t, byID.Attachments, 1)
	assert.Equal(t, "image/png", byID.Attachments[0].ContentType)

	byMessage, err := repo.GetByMessageID(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, listing.ID, byMessage.ID)

	_, err = repo.GetByMessageID(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestSQLListingRepository_MessageIDIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLListingRepository(openTestDB(t))
	expiresAt := time.Now().Add(time.Hour)

	require.NoError(t, repo.Create(ctx, newListing("msg-1", expiresAt)))
	assert.Error(t, repo.Create(ctx, newListing("msg-1", expiresAt)))
}

func TestSQLListingRepository_ExpiredAndActive(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLListingRepository(openTestDB(t))
	now := time.Now()

	require.NoError(t, repo.Create(ctx, newListing("past", now.Add(-time.Minute))))
	require.NoError(t, repo.Create(ctx, newListing("edge", now)))
	require.NoError(t, repo.Create(ctx, newListing("future", now.Add(time.Minute))))

	expired, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"past", "edge"}, messageIDs(expired))

	active, err := repo.ListActive(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"future"}, messageIDs(active))
}

func TestSQLListingRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLListingRepository(openTestDB(t))

	listing := newListing("msg-1", time.Now().Add(time.Hour))
	require.NoError(t, repo.Create(ctx, listing))

	empty := ""
	note := "fast trade"
	require.NoError(t, repo.Update(ctx, listing.ID, entity.ListingUpdate{Buying: &empty, Note: &note}))

	updated, err := repo.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Skin A", updated.Selling)
	assert.Equal(t, "", updated.Buying)
	assert.Equal(t, "fast trade", updated.Note)
	assert.False(t, updated.HasBothSides())

	err = repo.Update(ctx, "missing", entity.ListingUpdate{Note: &note})
	assert.True(t, errors.IsNotFound(err))
}

func TestSQLListingRepository_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLListingRepository(openTestDB(t))

	listing := newListing("msg-1", time.Now().Add(time.Hour))
	require.NoError(t, repo.Create(ctx, listing))

	deleted, err := repo.Delete(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, listing.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLListingRepository_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trades.sqlite")

	db, err := database.Open("sqlite", path, "")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))
	require.NoError(t, NewSQLListingRepository(db).Create(ctx, newListing("msg-1", time.Now().Add(time.Hour))))
	require.NoError(t, db.Close())

	db, err = database.Open("sqlite", path, "")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(ctx, db))

	listing, err := NewSQLListingRepository(db).GetByMessageID(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "user-a", listing.UserID)
}

func messageIDs(listings []*entity.Listing) []string {
	ids := make([]string, 0, len(listings))
	for _, listing := range listings {
		ids = append(ids, listing.MessageID)
	}
	return ids
}
