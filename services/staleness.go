package services

import (
	"context"
	"time"

	"idx_sync/models"
)

type StaleStore interface {
	RetireStale(ctx context.Context, t models.ListingType, runStart time.Time, status string) (int64, error)
}

// StalenessService retires listings an extract no longer carries
type StalenessService struct {
	store  StaleStore
	status string
}

func NewStalenessService(store StaleStore, retiredStatus string) *StalenessService {
	return &StalenessService{
		store:  store,
		status: retiredStatus,
	}
}

// Sweep marks every listing of type t last seen before runStart, or never
// seen, as retired and returns how many rows it touched.
func (s *StalenessService) Sweep(ctx context.Context, t models.ListingType, runStart time.Time) (int64, error) {
	n, err := s.store.RetireStale(ctx, t, runStart, s.status)
	if err != nil {
		return 0, &models.StoreError{Op: "retire " + string(t), Err: err}
	}
	return n, nil
}
