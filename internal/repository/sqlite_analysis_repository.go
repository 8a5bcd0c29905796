package repository

import (
	"context"
	"time"

	"github.com/pocketbase/dbx"

	"gitgauge/internal/domain"
)

type analysisRow struct {
	ID            string `db:"id"`
	Owner         string `db:"owner"`
	Repo          string `db:"repo"`
	Ref           string `db:"ref"`
	Summary       string `db:"summary"`
	Analysis      string `db:"analysis"`
	FilesAnalyzed int    `db:"files_analyzed"`
	CreatedAt     int64  `db:"created_at"`
}

// sqliteAnalysisRepository implements AnalysisRepository over the
// analysis_cache table.
type sqliteAnalysisRepository struct {
	db *dbx.DB
}

// NewSQLiteAnalysisRepository creates the analysis cache store.
func NewSQLiteAnalysisRepository(db *dbx.DB) AnalysisRepository {
	return &sqliteAnalysisRepository{db: db}
}

// Save stores an analysis, replacing any record with the same key.
func (r *sqliteAnalysisRepository) Save(ctx context.Context, analysis *domain.Analysis) error {
	if analysis == nil {
		return domain.NewValidationError("NIL_ANALYSIS", "Analysis cannot be nil", nil)
	}
	if err := analysis.Validate(); err != nil {
		return err
	}

	createdAt := analysis.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	_, err := r.db.NewQuery(
		`INSERT OR REPLACE INTO analysis_cache
			(id, owner, repo, ref, summary, analysis, files_analyzed, created_at)
		 VALUES ({:id}, {:owner}, {:repo}, {:ref}, {:summary}, {:analysis}, {:files}, {:created_at})`,
	).Bind(dbx.Params{
		"id":         analysis.Key(),
		"owner":      analysis.Owner,
		"repo":       analysis.Repo,
		"ref":        analysis.Ref,
		"summary":    analysis.Summary,
		"analysis":   analysis.Body,
		"files":      analysis.FilesAnalyzed,
		"created_at": createdAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("ANALYSIS_SAVE_FAILED", "Failed to cache analysis", err)
	}
	return nil
}

// Get returns the cached analysis for the key.
func (r *sqliteAnalysisRepository) Get(ctx context.Context, owner, repo, ref string) (*domain.Analysis, error) {
	var row analysisRow
	err := r.db.NewQuery(
		`SELECT id, owner, repo, ref, summary, analysis, files_analyzed, created_at
		 FROM analysis_cache WHERE id = {:id}`,
	).Bind(dbx.Params{"id": domain.AnalysisKey(owner, repo, ref)}).WithContext(ctx).One(&row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewNotFoundError("ANALYSIS_NOT_CACHED", "No cached analysis for "+domain.AnalysisKey(owner, repo, ref))
		}
		return nil, domain.NewInternalError("ANALYSIS_QUERY_FAILED", "Failed to read cached analysis", err)
	}

	return &domain.Analysis{
		Owner:         row.Owner,
		Repo:          row.Repo,
		Ref:           row.Ref,
		Summary:       row.Summary,
		Body:          row.Analysis,
		FilesAnalyzed: row.FilesAnalyzed,
		CreatedAt:     row.CreatedAt,
	}, nil
}

// Delete removes a single cached analysis.
func (r *sqliteAnalysisRepository) Delete(ctx context.Context, owner, repo, ref string) error {
	_, err := r.db.NewQuery(
		`DELETE FROM analysis_cache WHERE id = {:id}`,
	).Bind(dbx.Params{"id": domain.AnalysisKey(owner, repo, ref)}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("ANALYSIS_DELETE_FAILED", "Failed to delete cached analysis", err)
	}
	return nil
}

// Clear removes every cached analysis.
func (r *sqliteAnalysisRepository) Clear(ctx context.Context) error {
	_, err := r.db.NewQuery(`DELETE FROM analysis_cache`).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("ANALYSIS_CLEAR_FAILED", "Failed to clear analysis cache", err)
	}
	return nil
}

// PurgeOlderThan deletes records older than the retention horizon.
func (r *sqliteAnalysisRepository) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UnixMilli()
	result, err := r.db.NewQuery(
		`DELETE FROM analysis_cache WHERE created_at < {:cutoff}`,
	).Bind(dbx.Params{"cutoff": cutoff}).WithContext(ctx).Execute()
	if err != nil {
		return 0, domain.NewInternalError("ANALYSIS_PURGE_FAILED", "Failed to purge old analyses", err)
	}

	evicted, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return evicted, nil
}
