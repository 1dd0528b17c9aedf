package deletion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ferncroft/helper-audit/internal/analysis"
	"github.com/ferncroft/helper-audit/internal/helper"
)

// BackupArtifact is the name of the pre-deletion snapshot document.
const BackupArtifact = "deletion_backup.json"

// Outcomes recorded per entity.
const (
	OutcomeDeleted = "deleted"
	OutcomeFailed  = "failed"
	OutcomeDryRun  = "dry_run"
)

// removeService is the per-domain registry service that deletes a helper.
const removeService = "remove"

// Record is the pre-deletion snapshot of one entity plus the outcome of
// the attempt. Written to the backup document and the record store before
// and after mutating, so the last known state survives the deletion.
type Record struct {
	RunID        string         `json:"run_id"`
	EntityID     string         `json:"entity_id"`
	FriendlyName string         `json:"friendly_name,omitempty"`
	LastState    *string        `json:"last_state"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	DeletedAt    time.Time      `json:"deleted_at"`
	Outcome      string         `json:"outcome"`
	Detail       string         `json:"detail,omitempty"`
}

// Report is the post-run summary of one deletion pass.
type Report struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`

	// Records carry one entry per validated candidate, in list order.
	Records []Record `json:"records"`

	// AlreadyAbsent lists entities named in the action list that no
	// longer exist. The desired end state is reached; nothing was done.
	AlreadyAbsent []string `json:"already_absent,omitempty"`

	// Rejected lists action-list entries the gate refused, including
	// template-type helpers that require manual config removal.
	Rejected []analysis.ValidationError `json:"rejected,omitempty"`
}

// Deleted returns the count of successful deletions.
func (r *Report) Deleted() int { return r.countOutcome(OutcomeDeleted) }

// Failed returns the count of failed deletions.
func (r *Report) Failed() int { return r.countOutcome(OutcomeFailed) }

func (r *Report) countOutcome(outcome string) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Outcome == outcome {
			n++
		}
	}
	return n
}

// ServiceCaller invokes a Home Assistant service against one entity.
type ServiceCaller interface {
	CallService(ctx context.Context, domain, service, entityID string) error
}

// RecordStore persists deletion records.
type RecordStore interface {
	SaveRecord(ctx context.Context, rec Record) error
}

// Logger is the minimal logging interface the runner requires.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Runner executes validated deletions. It never decides what to delete:
// the action list and the deletion gate do; the runner snapshots, calls
// the per-domain remove service and records outcomes.
type Runner struct {
	caller ServiceCaller
	store  RecordStore
	sink   analysis.Sink
	logger Logger

	now   func() time.Time
	newID func() string
}

// NewRunner creates a deletion runner.
//
// Parameters:
//   - caller: Service-call boundary to Home Assistant
//   - store: Persistent deletion record store (nil to skip persistence)
//   - sink: Receives the pre-deletion backup document
func NewRunner(caller ServiceCaller, store RecordStore, sink analysis.Sink) *Runner {
	return &Runner{
		caller: caller,
		store:  store,
		sink:   sink,
		logger: noopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// SetLogger attaches a logger. Call before Run.
func (r *Runner) SetLogger(l Logger) {
	if l != nil {
		r.logger = l
	}
}

// Run parses an action list, applies the deletion gate and deletes the
// surviving candidates.
//
// The backup document is written before any mutation. In dry-run mode the
// gate and backup still run; no service is called and nothing is stored.
// A failed deletion is recorded and the pass continues with the next
// candidate.
//
// Parameters:
//   - ctx: Bounds every service call
//   - listText: Raw orphan action list content
//   - live: Current helper entities from discovery
//   - latest: Most recent analysis result, for the gate
//   - dryRun: Compute and report without mutating
//
// Returns:
//   - *Report: Outcome per candidate plus rejections
//   - error: Only when the backup cannot be written
func (r *Runner) Run(ctx context.Context, listText string, live []helper.Entity, latest *analysis.Result, dryRun bool) (*Report, error) {
	gate := analysis.ValidateDeletions(analysis.ParseActionList(listText), live, latest)

	report := &Report{
		RunID:    r.newID(),
		DryRun:   dryRun,
		Rejected: gate.Errors,
	}
	for _, absent := range gate.AlreadyAbsent {
		report.AlreadyAbsent = append(report.AlreadyAbsent, absent.EntityID)
	}

	records := make([]Record, 0, len(gate.Candidates))
	for _, entity := range gate.Candidates {
		records = append(records, r.snapshot(report.RunID, entity))
	}

	if err := r.writeBackup(records); err != nil {
		// No mutation without a safe backup.
		return nil, err
	}

	for i := range records {
		rec := &records[i]
		if dryRun {
			rec.Outcome = OutcomeDryRun
			continue
		}

		domain, _, _ := helper.SplitEntityID(rec.EntityID)
		if err := r.caller.CallService(ctx, domain, removeService, rec.EntityID); err != nil {
			rec.Outcome = OutcomeFailed
			rec.Detail = err.Error()
			r.logger.Warn("deletion failed", "entity_id", rec.EntityID, "error", err)
		} else {
			rec.Outcome = OutcomeDeleted
			r.logger.Info("helper deleted", "entity_id", rec.EntityID)
		}

		if r.store != nil {
			if err := r.store.SaveRecord(ctx, *rec); err != nil {
				r.logger.Warn("recording deletion failed", "entity_id", rec.EntityID, "error", err)
			}
		}
	}

	report.Records = records
	return report, nil
}

// snapshot captures an entity's last known state before deletion.
func (r *Runner) snapshot(runID string, entity helper.Entity) Record {
	return Record{
		RunID:        runID,
		EntityID:     entity.EntityID,
		FriendlyName: entity.FriendlyName,
		LastState:    entity.State,
		Attributes:   entity.Attributes,
		DeletedAt:    r.now(),
	}
}

// writeBackup stores the pre-deletion snapshot document.
func (r *Runner) writeBackup(records []Record) error {
	if r.sink == nil {
		return nil
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling backup: %w", err)
	}
	if err := r.sink.Store(BackupArtifact, append(data, '\n')); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}
