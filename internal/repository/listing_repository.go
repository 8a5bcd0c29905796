package repository

import (
	"context"

	"gitgauge/internal/domain"
)

// ListingRepository is the read-through cache for the user's repository
// listing. The listing is transient: every successful remote fetch fully
// replaces the previous contents.
type ListingRepository interface {
	// ReplaceAll atomically swaps the stored listing for repos.
	ReplaceAll(ctx context.Context, repos []domain.Repository) error

	// List returns the cached listing, newest id first. An empty cache
	// returns an empty slice, not an error.
	List(ctx context.Context) ([]domain.Repository, error)

	// Count returns the number of cached entries.
	Count(ctx context.Context) (int, error)

	// Clear removes all cached entries.
	Clear(ctx context.Context) error
}
