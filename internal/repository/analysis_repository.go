package repository

import (
	"context"
	"time"

	"gitgauge/internal/domain"
)

// AnalysisRepository is the analysis cache store, keyed by (owner, repo, ref).
// At most one record exists per key; saving overwrites (last write wins).
type AnalysisRepository interface {
	// Save stores an analysis, replacing any record with the same key.
	Save(ctx context.Context, analysis *domain.Analysis) error

	// Get returns the cached analysis for the key, or a NotFoundError on a
	// cache miss.
	Get(ctx context.Context, owner, repo, ref string) (*domain.Analysis, error)

	// Delete removes a single cached analysis. Missing keys are a no-op.
	Delete(ctx context.Context, owner, repo, ref string) error

	// Clear removes every cached analysis.
	Clear(ctx context.Context) error

	// PurgeOlderThan deletes records older than the retention horizon and
	// returns the number of rows evicted. There is no background trigger;
	// callers decide when to run it.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
