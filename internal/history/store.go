package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open creates or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a run row.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return s.execWithRetry(ctx,
		`INSERT INTO runs (id, started_at, encoders, queued, original_bytes, new_bytes)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		strings.Join(run.Encoders, ","),
		run.Queued,
		run.OriginalBytes,
		run.NewBytes,
	)
}

// FinishRun stamps the run's end time and final totals.
func (s *Store) FinishRun(ctx context.Context, runID string, queued int, originalBytes, newBytes int64, finishedAt time.Time) error {
	return s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, queued = ?, original_bytes = ?, new_bytes = ? WHERE id = ?`,
		formatTime(finishedAt), queued, originalBytes, newBytes, runID,
	)
}

// Record appends one file outcome.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.RunID == "" || rec.Path == "" {
		return errors.New("record requires run id and path")
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.FinishedAt
	}
	return s.execWithRetry(ctx,
		`INSERT INTO outcomes (
            run_id, task_id, path, encoder, quality, preset, outcome,
            original_bytes, new_bytes, exit_code, error_message, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.TaskID,
		rec.Path,
		nullableString(rec.Encoder),
		nullableInt(rec.Quality),
		nullableInt(rec.Preset),
		string(rec.Outcome),
		rec.OriginalBytes,
		rec.NewBytes,
		nullableInt(rec.ExitCode),
		nullableString(rec.ErrorMessage),
		formatTime(rec.StartedAt),
		formatTime(rec.FinishedAt),
	)
}

const recordColumns = "id, run_id, task_id, path, encoder, quality, preset, outcome, original_bytes, new_bytes, exit_code, error_message, started_at, finished_at"

// List returns outcomes newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if len(filter.Outcomes) > 0 {
		clauses = append(clauses, "outcome IN ("+makePlaceholders(len(filter.Outcomes))+")")
		for _, o := range filter.Outcomes {
			args = append(args, string(o))
		}
	}
	query := "SELECT " + recordColumns + " FROM outcomes"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestRun returns the most recently started run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, encoders, queued, original_bytes, new_bytes
         FROM runs ORDER BY rowid DESC LIMIT 1`)
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		encoders    string
	)
	err := row.Scan(&run.ID, &startedRaw, &finishedRaw, &encoders, &run.Queued, &run.OriginalBytes, &run.NewBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	if t, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = t
	}
	if finishedRaw.Valid {
		if t, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &t
		}
	}
	if encoders != "" {
		run.Encoders = strings.Split(encoders, ",")
	}
	return &run, nil
}

// CountByOutcome tallies outcomes for a run.
func (s *Store) CountByOutcome(ctx context.Context, runID string) (map[Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(1) FROM outcomes WHERE run_id = ? GROUP BY outcome`, runID)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()
	counts := make(map[Outcome]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[Outcome(outcome)] = count
	}
	return counts, rows.Err()
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
