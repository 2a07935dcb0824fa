// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records run history in a SQLite database inside the
// target directory, so repeated scrapes against the same corpus can be
// inspected later.
package ledger

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-scraper/pkg/types"
)

const dbFile = "scrape.db"

// Store manages the run-history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger database at dir/scrape.db, creating
// the schema if it does not exist.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			downloaded INTEGER NOT NULL,
			cached INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT,
			doi TEXT,
			strategy TEXT,
			status TEXT NOT NULL,
			path TEXT,
			bytes INTEGER,
			error TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_doi ON entries(doi)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun persists a manifest and all its entries in one transaction.
func (s *Store) RecordRun(m *types.Manifest) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, query, started_at, finished_at, total, downloaded, cached, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.Query,
		m.StartedAt.Format(time.RFC3339), m.FinishedAt.Format(time.RFC3339),
		len(m.Entries), m.Downloaded(), m.Cached(), m.Failed(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO entries (run_id, position, title, doi, strategy, status, path, bytes, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range m.Entries {
		_, err := stmt.Exec(
			m.RunID, i, e.Record.Title, e.Record.DOI, e.Resolution.Strategy,
			string(e.Download.Status), e.Download.Path, e.Download.Bytes, e.Download.Error,
		)
		if err != nil {
			return fmt.Errorf("inserting entry %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID         string
	Query      string
	StartedAt  time.Time
	Total      int
	Downloaded int
	Cached     int
	Failed     int
}

// ListRuns returns up to limit runs, most recent first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, query, started_at, total, downloaded, cached, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var rs RunSummary
		var started string
		if err := rows.Scan(&rs.ID, &rs.Query, &started, &rs.Total, &rs.Downloaded, &rs.Cached, &rs.Failed); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		rs.StartedAt, _ = time.Parse(time.RFC3339, started)
		summaries = append(summaries, rs)
	}
	return summaries, rows.Err()
}
