package store

import (
	"errors"

	"crosslister/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store is the persistence contract shared by the listing and order flows:
// per-account token records, the category tree snapshot, and per-run
// listing results.
type Store interface {
	LoadToken(accountID int) (domain.TokenRecord, error)
	SaveToken(rec domain.TokenRecord) error

	LoadSnapshot() (*domain.CategorySnapshot, error)
	SaveSnapshot(snap *domain.CategorySnapshot) error

	AppendResult(res domain.ListingResult) error
	ListResults(runID string) ([]domain.ListingResult, error)
}
