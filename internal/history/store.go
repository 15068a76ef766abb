// Package history keeps a SQLite record of test runs so that flaky or
// regressing documents can be spotted across invocations.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/simdem/internal/models"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// RunRecord is a stored RunSummary without its individual results
type RunRecord struct {
	ID        int64
	RunID     string
	Document  string
	Mode      string
	Passed    int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// Filter narrows ListRuns. Zero values match everything.
type Filter struct {
	Document   string
	FailedOnly bool
	Limit      int
}

// DocumentStats aggregates every recorded run of a document
type DocumentStats struct {
	Document string
	Runs     int
	Passed   int
	Failed   int
	LastRun  time.Time
}

// Store manages the SQLite database of test runs
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and applies
// pending migrations.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// connection parameters apply to every pooled connection
	dsn := dbPath + "?_busy_timeout=5000&_foreign_keys=on"
	if dbPath != MemoryPath {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == MemoryPath {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// Path returns the database location
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a summary and its test results in one transaction and
// returns the new row id.
func (s *Store) RecordRun(ctx context.Context, summary models.RunSummary) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, document, mode, passed, failed, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.Document,
		summary.Mode,
		summary.Passed,
		summary.Failed,
		summary.StartedAt.UTC(),
		summary.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO test_results
		(run_row_id, position, command, expected, actual, ratio, threshold, passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range summary.Results {
		// a malformed annotation leaves the threshold NaN, stored as NULL
		threshold := sql.NullFloat64{Float64: r.Threshold, Valid: !math.IsNaN(r.Threshold)}
		if _, err := stmt.ExecContext(ctx, id, i, r.Command, r.Expected, r.Actual, r.Ratio, threshold, r.Passed); err != nil {
			return 0, fmt.Errorf("insert test result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns recorded runs, most recent first
func (s *Store) ListRuns(ctx context.Context, f Filter) ([]RunRecord, error) {
	query := `SELECT id, run_id, document, mode, passed, failed, started_at, duration_ms
		FROM runs WHERE 1=1`
	var args []interface{}
	if f.Document != "" {
		query += ` AND document = ?`
		args = append(args, f.Document)
	}
	if f.FailedOnly {
		query += ` AND failed > 0`
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.RunID, &r.Document, &r.Mode, &r.Passed, &r.Failed, &r.StartedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// GetResults returns the test results of one run in document order
func (s *Store) GetResults(ctx context.Context, runRowID int64) ([]models.TestResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.document, t.command, t.expected, t.actual, t.ratio, t.threshold, t.passed
		FROM test_results t JOIN runs r ON r.id = t.run_row_id
		WHERE t.run_row_id = ?
		ORDER BY t.position`, runRowID)
	if err != nil {
		return nil, fmt.Errorf("query test results: %w", err)
	}
	defer rows.Close()

	var results []models.TestResult
	for rows.Next() {
		var tr models.TestResult
		var threshold sql.NullFloat64
		if err := rows.Scan(&tr.Document, &tr.Command, &tr.Expected, &tr.Actual, &tr.Ratio, &threshold, &tr.Passed); err != nil {
			return nil, fmt.Errorf("scan test result row: %w", err)
		}
		tr.Threshold = math.NaN()
		if threshold.Valid {
			tr.Threshold = threshold.Float64
		}
		results = append(results, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test result rows: %w", err)
	}
	return results, nil
}

// GetDocumentStats aggregates all runs per document, most recently run first
func (s *Store) GetDocumentStats(ctx context.Context) ([]DocumentStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document, COUNT(*), SUM(passed), SUM(failed), MAX(started_at)
		FROM runs GROUP BY document ORDER BY MAX(started_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query document stats: %w", err)
	}
	defer rows.Close()

	var stats []DocumentStats
	for rows.Next() {
		var st DocumentStats
		// aggregates lose the column type, so the timestamp comes back as text
		var last string
		if err := rows.Scan(&st.Document, &st.Runs, &st.Passed, &st.Failed, &last); err != nil {
			return nil, fmt.Errorf("scan document stats row: %w", err)
		}
		st.LastRun = parseTimestamp(last)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document stats rows: %w", err)
	}
	return stats, nil
}

// CleanupOldRuns deletes runs started before keepDays ago and returns how
// many were removed. keepDays <= 0 keeps everything.
func (s *Store) CleanupOldRuns(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
