package deletion

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ferncroft/helper-audit/internal/infrastructure/database"
	_ "github.com/ferncroft/helper-audit/migrations"
)

func TestSQLiteRecordStore_RoundTrip(t *testing.T) {
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	store := NewSQLiteRecordStore(db)
	state := "4"
	rec := Record{
		RunID:        "del-1",
		EntityID:     "counter.delete_me",
		FriendlyName: "Daily count",
		LastState:    &state,
		Attributes:   map[string]any{"icon": "mdi:counter"},
		DeletedAt:    time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		Outcome:      OutcomeDeleted,
	}

	if err := store.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}

	got, err := store.RecordsForEntity(ctx, "counter.delete_me")
	if err != nil {
		t.Fatalf("RecordsForEntity() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if got[0].LastState == nil || *got[0].LastState != "4" {
		t.Errorf("last state = %v, want 4", got[0].LastState)
	}
	if got[0].Attributes["icon"] != "mdi:counter" {
		t.Errorf("attributes = %v, want icon preserved", got[0].Attributes)
	}
	if !got[0].DeletedAt.Equal(rec.DeletedAt) {
		t.Errorf("deletedAt = %v, want %v", got[0].DeletedAt, rec.DeletedAt)
	}

	if missing, err := store.RecordsForEntity(ctx, "counter.never_deleted"); err != nil || len(missing) != 0 {
		t.Errorf("records for unknown entity = %v, %v; want empty", missing, err)
	}
}
