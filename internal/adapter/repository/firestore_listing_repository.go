package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradeboard/internal/domain/entity"
	"tradeboard/internal/domain/repository"
	"tradeboard/pkg/errors"
)

const listingsCollection = "trade_posts"

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		doc := r.client.Collection(listingsCollection).NewDoc()
		listing.ID = doc.ID
	}

	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = time.Now()
	}
	listing.UpdatedAt = listing.CreatedAt
	if listing.Attachments == nil {
		listing.Attachments = []entity.Attachment{}
	}

	// Message ids are unique; Create fails if the document already exists.
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		query := r.client.Collection(listingsCollection).Where("messageId", "==", listing.MessageID).Limit(1)
		docs, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			return errors.BadRequest("Listing already exists for this message", nil)
		}
		return tx.Create(r.client.Collection(listingsCollection).Doc(listing.ID), listing)
	})
	if err != nil {
		if errors.Is(err, "BAD_REQUEST") {
			return err
		}
		return errors.Internal("Failed to create listing", err)
	}

	return nil
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	doc, err := r.client.Collection(listingsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, errors.Internal("Failed to get listing", err)
	}

	return decodeListing(doc)
}

func (r *firestoreListingRepository) GetByMessageID(ctx context.Context, messageID string) (*entity.Listing, error) {
	iter := r.client.Collection(listingsCollection).Where("messageId", "==", messageID).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Listing", nil)
	}
	if err != nil {
		return nil, errors.Internal("Failed to get listing", err)
	}

	return decodeListing(doc)
}

func (r *firestoreListingRepository) ListExpired(ctx context.Context, now time.Time) ([]*entity.Listing, error) {
	query := r.client.Collection(listingsCollection).
		Where("expiresAt", "<=", now).
		OrderBy("expiresAt", firestore.Asc)
	return r.list(ctx, query)
}

func (r *firestoreListingRepository) ListActive(ctx context.Context, now time.Time) ([]*entity.Listing, error) {
	query := r.client.Collection(listingsCollection).
		Where("expiresAt", ">", now).
		OrderBy("expiresAt", firestore.Asc)
	return r.list(ctx, query)
}

func (r *firestoreListingRepository) Update(ctx context.Context, id string, update entity.ListingUpdate) error {
	var updates []firestore.Update
	// Empty strings clear the field, mirroring the omitempty tags.
	field := func(path string, value *string) {
		if value == nil {
			return
		}
		if *value == "" {
			updates = append(updates, firestore.Update{Path: path, Value: firestore.Delete})
			return
		}
		updates = append(updates, firestore.Update{Path: path, Value: *value})
	}
	field("selling", update.Selling)
	field("buying", update.Buying)
	field("offering", update.Note)
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now()})

	_, err := r.client.Collection(listingsCollection).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Listing", err)
		}
		return errors.Internal("Failed to update listing", err)
	}

	return nil
}

func (r *firestoreListingRepository) Delete(ctx context.Context, id string) (bool, error) {
	ref := r.client.Collection(listingsCollection).Doc(id)
	deleted := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		deleted = false
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		deleted = true
		return tx.Delete(ref)
	})
	if err != nil {
		return false, errors.Internal("Failed to delete listing", err)
	}

	return deleted, nil
}

func (r *firestoreListingRepository) list(ctx context.Context, query firestore.Query) ([]*entity.Listing, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var listings []*entity.Listing
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate listings", err)
		}

		listing, err := decodeListing(doc)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}

	return listings, nil
}

func decodeListing(doc *firestore.DocumentSnapshot) (*entity.Listing, error) {
	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}
	listing.ID = doc.Ref.ID
	if listing.Attachments == nil {
		listing.Attachments = []entity.Attachment{}
	}
	return &listing, nil
}
