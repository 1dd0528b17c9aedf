package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ferncroft/helper-audit/internal/infrastructure/database"
)

// RunSummary is the headline view of one stored run, without the full
// result document.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
	Total         int       `json:"total"`
	ActivelyUsed  int       `json:"actively_used"`
	DashboardOnly int       `json:"dashboard_only"`
	TrulyOrphaned int       `json:"truly_orphaned"`
	LoadErrors    int       `json:"load_errors"`
	DurationMS    int64     `json:"duration_ms"`
}

// Repository persists analysis runs. The deletion gate reads the latest
// run back through it; the report API lists history.
type Repository interface {
	// SaveRun stores a completed run with its full result document.
	SaveRun(ctx context.Context, result *Result, duration time.Duration) error

	// LatestRun returns the most recent run's full result.
	// Returns ErrNoRuns when the store is empty.
	LatestRun(ctx context.Context) (*Result, error)

	// ListRuns returns run summaries, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// SQLiteRepository implements Repository on the run-history database.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a repository backed by db. The schema must
// already be migrated.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveRun stores a completed run.
func (r *SQLiteRepository) SaveRun(ctx context.Context, result *Result, duration time.Duration) error {
	document, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshalling result document: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			id, started_at, total_helpers,
			actively_used, dashboard_only, truly_orphaned,
			load_errors, duration_ms, document
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.Timestamp.UTC().Format(time.RFC3339Nano),
		result.Counts.Total,
		result.Counts.ByClassification[ActivelyUsed],
		result.Counts.ByClassification[DashboardOnly],
		result.Counts.ByClassification[TrulyOrphaned],
		len(result.LoadErrors),
		duration.Milliseconds(),
		string(document),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", result.RunID, err)
	}
	return nil
}

// LatestRun returns the most recent run's full result document.
func (r *SQLiteRepository) LatestRun(ctx context.Context) (*Result, error) {
	var document string
	err := r.db.QueryRowContext(ctx, `
		SELECT document FROM analysis_runs
		ORDER BY started_at DESC LIMIT 1`,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(document), &result); err != nil {
		return nil, fmt.Errorf("unmarshalling run document: %w", err)
	}
	return &result, nil
}

// ListRuns returns run summaries, newest first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, started_at, total_helpers,
		       actively_used, dashboard_only, truly_orphaned,
		       load_errors, duration_ms
		FROM analysis_runs
		ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		var startedAt string
		if err := rows.Scan(
			&s.RunID, &startedAt, &s.Total,
			&s.ActivelyUsed, &s.DashboardOnly, &s.TrulyOrphaned,
			&s.LoadErrors, &s.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		s.Timestamp, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing run timestamp %q: %w", startedAt, err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return summaries, nil
}
