// Package repository provides data access interfaces and their SQLite
// implementations for the gitgauge client core.
//
// All persisted state lives in a single SQLite file: the encrypted credential
// slot, the single-row user session, the analysis cache, the repository
// listing cache and the notification log. The database handle is constructed
// once and injected; there are no lazily initialized globals.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"

	// Registers the pure-Go "sqlite" driver with database/sql. No CGo, so the
	// library cross-compiles wherever the host application does.
	_ "modernc.org/sqlite"
)

// Open opens (or creates) the local database at path and runs migrations.
func Open(path string) (*dbx.DB, error) {
	db, err := dbx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repository: opening database: %w", err)
	}

	if err := db.DB().Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: pinging database: %w", err)
	}

	// WAL allows reads concurrent with a write; foreign keys are off by
	// default in SQLite.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.NewQuery(pragma).Execute(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("repository: %s: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: running migrations: %w", err)
	}

	return db, nil
}

func migrate(db *dbx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_sessions (
			id           INTEGER PRIMARY KEY,
			login        TEXT NOT NULL,
			avatar_url   TEXT NOT NULL DEFAULT '',
			name         TEXT,
			bio          TEXT,
			public_repos INTEGER NOT NULL DEFAULT 0,
			last_login   INTEGER NOT NULL,
			is_active    INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS analysis_cache (
			id             TEXT PRIMARY KEY,
			owner          TEXT NOT NULL,
			repo           TEXT NOT NULL,
			ref            TEXT NOT NULL,
			summary        TEXT NOT NULL,
			analysis       TEXT NOT NULL,
			files_analyzed INTEGER NOT NULL DEFAULT 0,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_cache_created_at ON analysis_cache(created_at)`,
		`CREATE TABLE IF NOT EXISTS repositories (
			id          INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			html_url    TEXT NOT NULL DEFAULT '',
			stars       INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id            TEXT PRIMARY KEY,
			repo_name     TEXT NOT NULL,
			repo_owner    TEXT NOT NULL DEFAULT '',
			message       TEXT NOT NULL,
			analysis_type TEXT NOT NULL DEFAULT 'repository_analysis',
			timestamp     INTEGER NOT NULL,
			is_read       INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_timestamp ON notifications(timestamp)`,
	}

	for _, stmt := range statements {
		if _, err := db.NewQuery(stmt).Execute(); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// isNoRows reports whether err means "no matching row".
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
