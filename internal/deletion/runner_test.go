package deletion

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ferncroft/helper-audit/internal/analysis"
	"github.com/ferncroft/helper-audit/internal/helper"
)

type fakeCaller struct {
	calls []string
	fail  map[string]error
}

func (f *fakeCaller) CallService(ctx context.Context, domain, service, entityID string) error {
	f.calls = append(f.calls, domain+"."+service+" "+entityID)
	if err, ok := f.fail[entityID]; ok {
		return err
	}
	return nil
}

type memorySink struct {
	stored map[string][]byte
}

func newMemorySink() *memorySink { return &memorySink{stored: make(map[string][]byte)} }

func (s *memorySink) Store(name string, data []byte) error {
	s.stored[name] = data
	return nil
}

type memoryStore struct {
	records []Record
}

func (m *memoryStore) SaveRecord(ctx context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return nil
}

func gateHelper(entityID string) helper.Entity {
	domain, objectID, _ := helper.SplitEntityID(entityID)
	return helper.Entity{EntityID: entityID, Domain: domain, ObjectID: objectID}
}

func deletionFixture() ([]helper.Entity, *analysis.Result) {
	live := []helper.Entity{
		gateHelper("counter.delete_me"),
		gateHelper("timer.also_delete"),
		gateHelper("input_boolean.keep_me"),
		gateHelper("sensor.template_power"),
	}
	latest := &analysis.Result{
		Helpers: []analysis.Finding{
			{Entity: live[0], Classification: analysis.TrulyOrphaned},
			{Entity: live[1], Classification: analysis.TrulyOrphaned},
			{Entity: live[2], Classification: analysis.ActivelyUsed},
			{Entity: live[3], Classification: analysis.TrulyOrphaned, RequiresManualRemoval: true},
		},
	}
	return live, latest
}

func newTestRunner(caller *fakeCaller, store RecordStore, sink analysis.Sink) *Runner {
	r := NewRunner(caller, store, sink)
	r.now = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }
	r.newID = func() string { return "del-test" }
	return r
}

const actionList = `# review list
counter.delete_me  # (last state: 4)
timer.also_delete
sensor.template_power
counter.already_gone
# input_boolean.commented_out
`

func TestRun_DeletesValidatedCandidates(t *testing.T) {
	live, latest := deletionFixture()
	caller := &fakeCaller{}
	store := &memoryStore{}
	sink := newMemorySink()

	report, err := newTestRunner(caller, store, sink).Run(context.Background(), actionList, live, latest, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantCalls := []string{
		"counter.remove counter.delete_me",
		"timer.remove timer.also_delete",
	}
	if len(caller.calls) != len(wantCalls) {
		t.Fatalf("calls = %v, want %v", caller.calls, wantCalls)
	}
	for i, want := range wantCalls {
		if caller.calls[i] != want {
			t.Errorf("calls[%d] = %q, want %q", i, caller.calls[i], want)
		}
	}

	if report.Deleted() != 2 || report.Failed() != 0 {
		t.Errorf("deleted = %d, failed = %d; want 2, 0", report.Deleted(), report.Failed())
	}
	if len(store.records) != 2 {
		t.Errorf("stored records = %d, want 2", len(store.records))
	}
	if len(report.AlreadyAbsent) != 1 || report.AlreadyAbsent[0] != "counter.already_gone" {
		t.Errorf("alreadyAbsent = %v", report.AlreadyAbsent)
	}
}

func TestRun_TemplateTypeRejectedAsManual(t *testing.T) {
	live, latest := deletionFixture()
	caller := &fakeCaller{}

	report, err := newTestRunner(caller, nil, newMemorySink()).Run(context.Background(), actionList, live, latest, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	found := false
	for _, rej := range report.Rejected {
		if rej.EntityID == "sensor.template_power" {
			found = true
			if rej.Reason != analysis.ReasonManualRemoval {
				t.Errorf("reason = %q, want %q", rej.Reason, analysis.ReasonManualRemoval)
			}
		}
	}
	if !found {
		t.Errorf("template-type helper missing from rejections: %v", report.Rejected)
	}
	for _, call := range caller.calls {
		if call == "sensor.remove sensor.template_power" {
			t.Error("template-type helper was deleted")
		}
	}
}

func TestRun_DryRun(t *testing.T) {
	live, latest := deletionFixture()
	caller := &fakeCaller{}
	store := &memoryStore{}
	sink := newMemorySink()

	report, err := newTestRunner(caller, store, sink).Run(context.Background(), actionList, live, latest, true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(caller.calls) != 0 {
		t.Errorf("dry run called services: %v", caller.calls)
	}
	if len(store.records) != 0 {
		t.Errorf("dry run stored records: %v", store.records)
	}
	for _, rec := range report.Records {
		if rec.Outcome != OutcomeDryRun {
			t.Errorf("outcome = %q, want %q", rec.Outcome, OutcomeDryRun)
		}
	}
	// The backup is still written: dry run previews the whole pipeline.
	if _, ok := sink.stored[BackupArtifact]; !ok {
		t.Error("dry run skipped the backup document")
	}
}

func TestRun_BackupBeforeMutation(t *testing.T) {
	live, latest := deletionFixture()
	state := "4"
	live[0].State = &state
	live[0].FriendlyName = "Daily count"

	sink := newMemorySink()
	caller := &fakeCaller{}

	if _, err := newTestRunner(caller, nil, sink).Run(context.Background(), actionList, live, latest, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var records []Record
	if err := json.Unmarshal(sink.stored[BackupArtifact], &records); err != nil {
		t.Fatalf("backup is not valid JSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("backup records = %d, want 2", len(records))
	}
	if records[0].EntityID != "counter.delete_me" || records[0].LastState == nil || *records[0].LastState != "4" {
		t.Errorf("backup[0] = %+v, want snapshot of counter.delete_me", records[0])
	}
}

func TestRun_FailedDeletionContinues(t *testing.T) {
	live, latest := deletionFixture()
	caller := &fakeCaller{fail: map[string]error{
		"counter.delete_me": errors.New("service unavailable"),
	}}

	report, err := newTestRunner(caller, nil, newMemorySink()).Run(context.Background(), actionList, live, latest, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Failed() != 1 || report.Deleted() != 1 {
		t.Errorf("failed = %d, deleted = %d; want 1, 1", report.Failed(), report.Deleted())
	}
	for _, rec := range report.Records {
		if rec.EntityID == "counter.delete_me" && rec.Detail == "" {
			t.Error("failed record missing detail")
		}
	}
}
