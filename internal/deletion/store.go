package deletion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ferncroft/helper-audit/internal/infrastructure/database"
)

// SQLiteRecordStore implements RecordStore on the run-history database.
type SQLiteRecordStore struct {
	db *database.DB
}

// NewSQLiteRecordStore creates a store backed by db. The schema must
// already be migrated.
func NewSQLiteRecordStore(db *database.DB) *SQLiteRecordStore {
	return &SQLiteRecordStore{db: db}
}

// SaveRecord persists one deletion record.
func (s *SQLiteRecordStore) SaveRecord(ctx context.Context, rec Record) error {
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("marshalling attributes: %w", err)
	}

	var lastState any
	if rec.LastState != nil {
		lastState = *rec.LastState
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deletion_records (
			run_id, entity_id, friendly_name, last_state,
			attributes, deleted_at, outcome, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.EntityID,
		rec.FriendlyName,
		lastState,
		string(attrs),
		rec.DeletedAt.UTC().Format(time.RFC3339Nano),
		rec.Outcome,
		rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting deletion record for %s: %w", rec.EntityID, err)
	}
	return nil
}

// RecordsForEntity returns the stored records for one entity, oldest
// first. Used to answer "what was this helper before it was deleted".
func (s *SQLiteRecordStore) RecordsForEntity(ctx context.Context, entityID string) ([]Record, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT run_id, entity_id, friendly_name, last_state,
		       attributes, deleted_at, outcome, detail
		FROM deletion_records
		WHERE entity_id = ?
		ORDER BY deleted_at`, entityID)
	if err != nil {
		return nil, fmt.Errorf("querying deletion records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var lastState *string
		var attrs, deletedAt string
		if err := rows.Scan(
			&rec.RunID, &rec.EntityID, &rec.FriendlyName, &lastState,
			&attrs, &deletedAt, &rec.Outcome, &rec.Detail,
		); err != nil {
			return nil, fmt.Errorf("scanning deletion record: %w", err)
		}
		rec.LastState = lastState
		if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshalling attributes for %s: %w", rec.EntityID, err)
		}
		rec.DeletedAt, err = time.Parse(time.RFC3339Nano, deletedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing deletion timestamp %q: %w", deletedAt, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deletion records: %w", err)
	}
	return records, nil
}
