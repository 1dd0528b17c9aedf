package analysis

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ferncroft/helper-audit/internal/corpus"
	"github.com/ferncroft/helper-audit/internal/helper"
	"github.com/ferncroft/helper-audit/internal/scan"
)

type fakeDiscovery struct {
	helpers []helper.Entity
	err     error
}

func (f *fakeDiscovery) Discover(ctx context.Context) ([]helper.Entity, error) {
	return f.helpers, f.err
}

func testHelper(entityID string) helper.Entity {
	domain, objectID, _ := helper.SplitEntityID(entityID)
	return helper.Entity{EntityID: entityID, Domain: domain, ObjectID: objectID}
}

// newTestEngine wires an engine against in-memory corpora and a fixed
// clock and run id, so results are fully deterministic.
func newTestEngine(helpers []helper.Entity, cfg, dash *corpus.Corpus) *Engine {
	e := NewEngine(&fakeDiscovery{helpers: helpers}, "/config", "/config/.storage", scan.DefaultNamingOptions())
	e.now = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }
	e.newID = func() string { return "run-test" }
	e.loadConfig = func(string) (*corpus.Corpus, error) { return cfg, nil }
	e.loadStorage = func(string) (*corpus.Corpus, error) { return dash, nil }
	return e
}

func TestRun_Scenarios(t *testing.T) {
	helpers := []helper.Entity{
		testHelper("counter.daily_count"),
		testHelper("input_boolean.guest_mode"),
		testHelper("input_number.target_temp"),
		testHelper("input_text.scratch_pad"),
	}
	cfg := &corpus.Corpus{Documents: []corpus.Document{
		{Path: "automations.yaml", Text: "- trigger: []\n  action:\n    - target:\n        entity_id: input_boolean.guest_mode\n"},
		{Path: "scripts.yaml", Text: "warm_up:\n  sequence:\n    - data:\n        temperature: \"{{ states('input_number.target_temp') }}\"\n"},
	}}
	dash := &corpus.Corpus{Documents: []corpus.Document{
		{Path: ".storage/lovelace", Text: `{"cards": [{"entity": "counter.daily_count"}]}`},
	}}

	result, err := newTestEngine(helpers, cfg, dash).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	tests := []struct {
		entityID string
		want     Classification
		wantKind scan.SourceKind
		wantHits int
	}{
		{"input_boolean.guest_mode", ActivelyUsed, scan.SourceStructural, 1},
		{"counter.daily_count", DashboardOnly, scan.SourceDashboard, 1},
		{"input_text.scratch_pad", TrulyOrphaned, "", 0},
		{"input_number.target_temp", ActivelyUsed, scan.SourceTemplate, 1},
	}
	for _, tt := range tests {
		f, ok := result.Finding(tt.entityID)
		if !ok {
			t.Fatalf("no finding for %s", tt.entityID)
		}
		if f.Classification != tt.want {
			t.Errorf("%s classification = %q, want %q", tt.entityID, f.Classification, tt.want)
		}
		if len(f.Hits) != tt.wantHits {
			t.Errorf("%s hits = %d, want %d (%v)", tt.entityID, len(f.Hits), tt.wantHits, f.Hits)
		}
		if tt.wantHits > 0 && f.Hits[0].Source != tt.wantKind {
			t.Errorf("%s hit kind = %q, want %q", tt.entityID, f.Hits[0].Source, tt.wantKind)
		}
	}

	if got := result.Counts.ByClassification[ActivelyUsed]; got != 2 {
		t.Errorf("actively_used count = %d, want 2", got)
	}
	if got := result.Counts.ByDomain["input_number"]; got != 1 {
		t.Errorf("input_number count = %d, want 1", got)
	}
}

func TestRun_TemplateHitConfidence(t *testing.T) {
	helpers := []helper.Entity{testHelper("input_number.target_temp")}
	cfg := &corpus.Corpus{Documents: []corpus.Document{
		{Path: "scripts.yaml", Text: "a:\n  b: \"{{ states('input_number.target_temp') }}\"\n"},
	}}

	result, err := newTestEngine(helpers, cfg, &corpus.Corpus{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	f, _ := result.Finding("input_number.target_temp")
	if len(f.Hits) != 1 {
		t.Fatalf("hits = %v, want exactly one template hit", f.Hits)
	}
	if f.Hits[0].Confidence != scan.ConfidenceTemplate {
		t.Errorf("confidence = %v, want %v", f.Hits[0].Confidence, scan.ConfidenceTemplate)
	}
}

func TestRun_Deterministic(t *testing.T) {
	helpers := []helper.Entity{
		testHelper("counter.visits"),
		testHelper("input_boolean.guest_mode"),
		testHelper("timer.laundry"),
	}
	cfg := &corpus.Corpus{Documents: []corpus.Document{
		{Path: "automations.yaml", Text: "- action:\n    - entity_id: input_boolean.guest_mode\n"},
		{Path: "scripts.yaml", Text: "a: \"{{ states('timer.laundry') }}\"\n"},
	}}

	run := func() []byte {
		result, err := newTestEngine(helpers, cfg, &corpus.Corpus{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		artifacts, err := BuildArtifacts(result)
		if err != nil {
			t.Fatalf("BuildArtifacts() error = %v", err)
		}
		var all []byte
		for _, a := range artifacts {
			all = append(all, a.Data...)
		}
		return all
	}

	first, second := run(), run()
	if !bytes.Equal(first, second) {
		t.Error("re-running against an unchanged corpus produced different artifacts")
	}
}

func TestRun_ParseFailureBecomesLoadError(t *testing.T) {
	helpers := []helper.Entity{testHelper("counter.visits")}
	cfg := &corpus.Corpus{Documents: []corpus.Document{
		{Path: "broken.yaml", Text: "\t- tabs are invalid\n"},
		{Path: "good.yaml", Text: "entity_id: counter.visits\n"},
	}}

	result, err := newTestEngine(helpers, cfg, &corpus.Corpus{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want partial result", err)
	}

	if len(result.LoadErrors) != 1 || result.LoadErrors[0].Path != "broken.yaml" {
		t.Errorf("LoadErrors = %v, want one entry for broken.yaml", result.LoadErrors)
	}
	if f, _ := result.Finding("counter.visits"); f.Classification != ActivelyUsed {
		t.Errorf("good file was not scanned after the broken one")
	}
}

func TestRun_DiscoveryFailureIsFatal(t *testing.T) {
	e := NewEngine(&fakeDiscovery{err: helper.ErrSourceUnavailable}, "/config", "/config/.storage", scan.DefaultNamingOptions())
	e.loadConfig = func(string) (*corpus.Corpus, error) { return &corpus.Corpus{}, nil }
	e.loadStorage = func(string) (*corpus.Corpus, error) { return &corpus.Corpus{}, nil }

	_, err := e.Run(context.Background())
	if !errors.Is(err, helper.ErrSourceUnavailable) {
		t.Fatalf("error = %v, want ErrSourceUnavailable", err)
	}
}

func TestRun_NoHelpersProducesEmptyResult(t *testing.T) {
	// Discovery succeeding with zero helpers is a valid state; the run
	// reports an empty result instead of failing.
	e := newTestEngine(nil, &corpus.Corpus{}, &corpus.Corpus{})
	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Helpers) != 0 {
		t.Errorf("Helpers = %v, want none", result.Helpers)
	}
	if result.Counts.Total != 0 {
		t.Errorf("Counts.Total = %d, want 0", result.Counts.Total)
	}
	if result.RunID == "" {
		t.Error("empty result still needs a run id")
	}
}

func TestRun_StorageFailureDegrades(t *testing.T) {
	helpers := []helper.Entity{testHelper("counter.visits")}
	e := newTestEngine(helpers, &corpus.Corpus{}, nil)
	e.loadStorage = func(string) (*corpus.Corpus, error) {
		return nil, errors.New("permission denied")
	}

	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want degraded result", err)
	}
	if len(result.LoadErrors) != 1 {
		t.Fatalf("LoadErrors = %v, want one storage entry", result.LoadErrors)
	}
	if f, _ := result.Finding("counter.visits"); f.Classification != TrulyOrphaned {
		t.Errorf("classification = %q, want truly_orphaned with no evidence", f.Classification)
	}
}
