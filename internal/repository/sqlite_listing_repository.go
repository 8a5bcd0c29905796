package repository

import (
	"context"

	"github.com/pocketbase/dbx"

	"gitgauge/internal/domain"
)

type listingRow struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	Description *string `db:"description"`
	HTMLURL     string  `db:"html_url"`
	Stars       int     `db:"stars"`
}

// sqliteListingRepository implements ListingRepository over the repositories
// table.
type sqliteListingRepository struct {
	db *dbx.DB
}

// NewSQLiteListingRepository creates the repository listing cache.
func NewSQLiteListingRepository(db *dbx.DB) ListingRepository {
	return &sqliteListingRepository{db: db}
}

// ReplaceAll atomically swaps the stored listing for repos.
func (r *sqliteListingRepository) ReplaceAll(ctx context.Context, repos []domain.Repository) error {
	err := r.db.TransactionalContext(ctx, nil, func(tx *dbx.Tx) error {
		if _, err := tx.NewQuery(`DELETE FROM repositories`).Execute(); err != nil {
			return err
		}
		for _, repo := range repos {
			if err := repo.Validate(); err != nil {
				return err
			}
			_, err := tx.NewQuery(
				`INSERT INTO repositories (id, name, description, html_url, stars)
				 VALUES ({:id}, {:name}, {:description}, {:url}, {:stars})`,
			).Bind(dbx.Params{
				"id":          repo.ID,
				"name":        repo.Name,
				"description": repo.Description,
				"url":         repo.HTMLURL,
				"stars":       repo.Stars,
			}).Execute()
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.NewInternalError("LISTING_REPLACE_FAILED", "Failed to replace repository listing", err)
	}
	return nil
}

// List returns the cached listing.
func (r *sqliteListingRepository) List(ctx context.Context) ([]domain.Repository, error) {
	var rows []listingRow
	err := r.db.NewQuery(
		`SELECT id, name, description, html_url, stars FROM repositories ORDER BY id DESC`,
	).WithContext(ctx).All(&rows)
	if err != nil {
		return nil, domain.NewInternalError("LISTING_QUERY_FAILED", "Failed to read repository listing", err)
	}

	repos := make([]domain.Repository, 0, len(rows))
	for _, row := range rows {
		repos = append(repos, domain.Repository{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			HTMLURL:     row.HTMLURL,
			Stars:       row.Stars,
		})
	}
	return repos, nil
}

// Count returns the number of cached entries.
func (r *sqliteListingRepository) Count(ctx context.Context) (int, error) {
	var row struct {
		Count int `db:"count"`
	}
	err := r.db.NewQuery(`SELECT COUNT(*) AS count FROM repositories`).WithContext(ctx).One(&row)
	if err != nil {
		return 0, domain.NewInternalError("LISTING_QUERY_FAILED", "Failed to count repository listing", err)
	}
	return row.Count, nil
}

// Clear removes all cached entries.
func (r *sqliteListingRepository) Clear(ctx context.Context) error {
	_, err := r.db.NewQuery(`DELETE FROM repositories`).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("LISTING_CLEAR_FAILED", "Failed to clear repository listing", err)
	}
	return nil
}
