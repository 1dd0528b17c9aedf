package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ferncroft/helper-audit/internal/infrastructure/database"
	_ "github.com/ferncroft/helper-audit/migrations"
)

func openRunStore(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db)
}

func storedResult(runID string, ts time.Time) *Result {
	findings := []Finding{
		{Entity: testHelper("counter.visits"), Classification: TrulyOrphaned},
		{Entity: testHelper("input_boolean.guest_mode"), Classification: ActivelyUsed},
	}
	return &Result{
		RunID:     runID,
		Timestamp: ts,
		Helpers:   findings,
		Counts:    tally(findings),
	}
}

func TestSQLiteRepository_SaveAndLatest(t *testing.T) {
	repo := openRunStore(t)
	ctx := context.Background()

	older := storedResult("run-1", time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))
	newer := storedResult("run-2", time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))

	if err := repo.SaveRun(ctx, older, 1500*time.Millisecond); err != nil {
		t.Fatalf("SaveRun(older) error = %v", err)
	}
	if err := repo.SaveRun(ctx, newer, 900*time.Millisecond); err != nil {
		t.Fatalf("SaveRun(newer) error = %v", err)
	}

	latest, err := repo.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if latest.RunID != "run-2" {
		t.Errorf("latest run = %q, want run-2", latest.RunID)
	}
	if len(latest.Helpers) != 2 {
		t.Errorf("helpers = %d, want 2: document did not round-trip", len(latest.Helpers))
	}
	if f, ok := latest.Finding("counter.visits"); !ok || f.Classification != TrulyOrphaned {
		t.Errorf("finding = %+v, want stored truly_orphaned", f)
	}
}

func TestSQLiteRepository_LatestRunEmpty(t *testing.T) {
	repo := openRunStore(t)

	_, err := repo.LatestRun(context.Background())
	if !errors.Is(err, ErrNoRuns) {
		t.Fatalf("error = %v, want ErrNoRuns", err)
	}
}

func TestSQLiteRepository_ListRuns(t *testing.T) {
	repo := openRunStore(t)
	ctx := context.Background()

	for i, ts := range []time.Time{
		time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 11, 8, 0, 0, 0, time.UTC),
	} {
		id := []string{"run-1", "run-2", "run-3"}[i]
		if err := repo.SaveRun(ctx, storedResult(id, ts), time.Second); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	summaries, err := repo.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	if summaries[0].RunID != "run-3" || summaries[1].RunID != "run-2" {
		t.Errorf("order = %s, %s; want newest first", summaries[0].RunID, summaries[1].RunID)
	}
	if summaries[0].TrulyOrphaned != 1 || summaries[0].Total != 2 {
		t.Errorf("summary counts = %+v, want orphaned 1 of 2", summaries[0])
	}
	if summaries[0].DurationMS != 1000 {
		t.Errorf("duration = %d, want 1000", summaries[0].DurationMS)
	}
}
