// Package history keeps a local record of past diagnostic runs so drift
// and job failures can be compared across invocations. Storage is a
// single-file SQLite database; the store is optional and the harness runs
// fine without it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/annolab/apidoctor/internal/models"
	"github.com/annolab/apidoctor/internal/suite"
	"github.com/annolab/apidoctor/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS suite_runs(
	ts INTEGER NOT NULL,
	target TEXT NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	skipped INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS triage_runs(
	ts INTEGER NOT NULL,
	target TEXT NOT NULL,
	total_jobs INTEGER NOT NULL,
	failed_jobs INTEGER NOT NULL,
	partial INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_suite_runs_ts ON suite_runs(ts);
CREATE INDEX IF NOT EXISTS idx_triage_runs_ts ON triage_runs(ts);
`

// Store records run summaries in a local SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, utils.NewAppError("history.open", "open history db", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, utils.NewAppError("history.open", "ping history db", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, utils.NewAppError("history.open", "init history schema", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordSuite stores the summary of one suite run.
func (s *Store) RecordSuite(ctx context.Context, run suite.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO suite_runs(ts, target, passed, failed, skipped) VALUES(?,?,?,?,?)`,
		run.Timestamp.Unix(), run.Target, run.Passed, run.Failed, run.Skipped)
	if err != nil {
		return fmt.Errorf("record suite run: %w", err)
	}
	return nil
}

// RecordTriage stores the summary of one triage run.
func (s *Store) RecordTriage(ctx context.Context, bundle models.DiagnosticBundle) error {
	partial := 0
	if bundle.Partial {
		partial = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triage_runs(ts, target, total_jobs, failed_jobs, partial) VALUES(?,?,?,?,?)`,
		bundle.Timestamp.Unix(), bundle.Server.URL, bundle.Summary.Total, bundle.Summary.Failed, partial)
	if err != nil {
		return fmt.Errorf("record triage run: %w", err)
	}
	return nil
}

// SuiteEntry is one historical suite run summary.
type SuiteEntry struct {
	Timestamp time.Time
	Target    string
	Passed    int
	Failed    int
	Skipped   int
}

// RecentSuiteRuns returns up to limit suite runs, newest first.
func (s *Store) RecentSuiteRuns(ctx context.Context, limit int) ([]SuiteEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, target, passed, failed, skipped FROM suite_runs ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list suite runs: %w", err)
	}
	defer rows.Close()

	var entries []SuiteEntry
	for rows.Next() {
		var entry SuiteEntry
		var ts int64
		if err := rows.Scan(&ts, &entry.Target, &entry.Passed, &entry.Failed, &entry.Skipped); err != nil {
			return nil, fmt.Errorf("scan suite run: %w", err)
		}
		entry.Timestamp = time.Unix(ts, 0).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
