package services

import (
	"context"

	"idx_sync/models"
	"idx_sync/storage"
)

// ListingStore is the store side of the upsert protocol. Each call is its
// own immediately committed statement.
type ListingStore interface {
	UpdateListing(ctx context.Context, l *models.Listing) (int64, error)
	InsertListingIfAbsent(ctx context.Context, l *models.Listing) (int64, error)
}

// ListingService makes the store consistent with one canonical listing
type ListingService struct {
	store ListingStore
}

func NewListingService(store ListingStore) *ListingService {
	return &ListingService{store: store}
}

// UpsertResult reports which step of the protocol changed the store
type UpsertResult struct {
	Updated  bool
	Inserted bool
}

// Upsert updates the listing's row if present, then inserts it if absent.
// Running it twice with the same listing leaves the same single row. A
// unique violation from the insert means a concurrent writer got there
// first and is not an error. Failures come back as *models.StoreError and
// are never retried here.
func (s *ListingService) Upsert(ctx context.Context, l *models.Listing) (*UpsertResult, error) {
	result := &UpsertResult{}

	updated, err := s.store.UpdateListing(ctx, l)
	if err != nil {
		return nil, &models.StoreError{Op: "update", ListingID: l.ListingID, Err: err}
	}
	result.Updated = updated > 0

	inserted, err := s.store.InsertListingIfAbsent(ctx, l)
	if err != nil {
		if storage.IsDuplicateKey(err) {
			return result, nil
		}
		return nil, &models.StoreError{Op: "insert", ListingID: l.ListingID, Err: err}
	}
	result.Inserted = inserted > 0

	return result, nil
}
