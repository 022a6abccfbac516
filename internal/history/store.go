// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history archives the outcome of every run in a SQLite database
// so popularity can be compared over time. The archive is append-only and
// is never consulted when querying: each run still asks GitHub for every
// dataset.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/dataset-popularity/pkg/types"
)

const timeFormat = time.RFC3339Nano

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Run summarizes one archived run.
type Run struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Counted    int       `json:"counted"`
	Failed     int       `json:"failed"`
}

// Observation is one dataset's outcome in one run. Count is nil for a
// failed query.
type Observation struct {
	RunID     int64     `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Ecosystem string    `json:"ecosystem"`
	Dataset   string    `json:"dataset"`
	Query     string    `json:"query"`
	Count     *int      `json:"count"`
	Error     string    `json:"error,omitempty"`
}

// NewStore opens or creates the history database at path and ensures the
// schema exists.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
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
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS observations (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			ecosystem TEXT NOT NULL,
			dataset TEXT NOT NULL,
			query TEXT NOT NULL,
			count INTEGER,
			error TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_dataset ON observations(dataset)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun stores one run and its records in a single transaction and
// returns the run ID.
func (s *Store) RecordRun(ctx context.Context, started, finished time.Time, records []types.PopularityRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at) VALUES (?, ?)`,
		started.UTC().Format(timeFormat), finished.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO observations (run_id, position, ecosystem, dataset, query, count, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing observation insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		var count sql.NullInt64
		var errText sql.NullString
		if r.Failed() {
			errText = sql.NullString{String: r.Err.Error(), Valid: true}
		} else {
			count = sql.NullInt64{Int64: int64(r.Count), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, i, r.Ecosystem, r.Dataset, r.Query, count, errText); err != nil {
			return 0, fmt.Errorf("inserting observation %s/%s: %w", r.Ecosystem, r.Dataset, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// Runs returns the most recent runs, newest first. A limit of zero or less
// returns all runs.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.finished_at,
		       COUNT(o.count),
		       COUNT(o.error)
		FROM runs r
		LEFT JOIN observations o ON o.run_id = r.id
		GROUP BY r.id
		ORDER BY r.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Counted, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeFormat, started); err != nil {
			return nil, fmt.Errorf("parsing started_at of run %d: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeFormat, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at of run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Trend returns every archived observation of a dataset, newest run
// first. An empty ecosystem matches all ecosystems.
func (s *Store) Trend(ctx context.Context, ecosystem, dataset string) ([]Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.run_id, r.started_at, o.ecosystem, o.dataset, o.query, o.count, o.error
		FROM observations o
		JOIN runs r ON r.id = o.run_id
		WHERE o.dataset = ? AND (? = '' OR o.ecosystem = ?)
		ORDER BY o.run_id DESC, o.position`, dataset, ecosystem, ecosystem)
	if err != nil {
		return nil, fmt.Errorf("querying trend for %s: %w", dataset, err)
	}
	defer rows.Close()

	var obs []Observation
	for rows.Next() {
		var (
			o       Observation
			started string
			count   sql.NullInt64
			errText sql.NullString
		)
		if err := rows.Scan(&o.RunID, &started, &o.Ecosystem, &o.Dataset, &o.Query, &count, &errText); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		if o.StartedAt, err = time.Parse(timeFormat, started); err != nil {
			return nil, fmt.Errorf("parsing started_at of run %d: %w", o.RunID, err)
		}
		if count.Valid {
			c := int(count.Int64)
			o.Count = &c
		}
		o.Error = errText.String
		obs = append(obs, o)
	}
	return obs, rows.Err()
}
