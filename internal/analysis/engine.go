package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ferncroft/helper-audit/internal/corpus"
	"github.com/ferncroft/helper-audit/internal/helper"
	"github.com/ferncroft/helper-audit/internal/scan"
)

// DiscoverySource lists the helper entities to classify.
type DiscoverySource interface {
	Discover(ctx context.Context) ([]helper.Entity, error)
}

// Logger is the minimal logging interface the engine requires.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Engine runs one full analysis pass: load the configuration corpus,
// discover helpers, scan every source, classify, aggregate.
//
// Each run builds a fresh reference index and helper set; the engine holds
// no state between runs and mutates nothing outside its own structures.
type Engine struct {
	discovery  DiscoverySource
	configDir  string
	storageDir string
	naming     scan.NamingOptions
	logger     Logger

	// Injection points for deterministic tests.
	now         func() time.Time
	newID       func() string
	loadConfig  func(root string) (*corpus.Corpus, error)
	loadStorage func(dir string) (*corpus.Corpus, error)
}

// NewEngine creates an analysis engine.
//
// Parameters:
//   - discovery: Source of live helper entities
//   - configDir: Configuration root to scan
//   - storageDir: Dashboard storage directory (.storage)
//   - naming: Tokenisation options for naming-pattern inference
func NewEngine(discovery DiscoverySource, configDir, storageDir string, naming scan.NamingOptions) *Engine {
	return &Engine{
		discovery:   discovery,
		configDir:   configDir,
		storageDir:  storageDir,
		naming:      naming,
		logger:      noopLogger{},
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		loadConfig:  corpus.Load,
		loadStorage: corpus.LoadStorage,
	}
}

// SetLogger attaches a logger. Call before Run.
func (e *Engine) SetLogger(l Logger) {
	if l != nil {
		e.logger = l
	}
}

// Run executes one analysis pass.
//
// Corpus loading and entity discovery are independent and run concurrently.
// Classification waits for both: a partial index would silently promote
// helpers to truly_orphaned.
//
// Per-file read and parse failures are carried in Result.LoadErrors.
// Only an unwalkable config root, an unreachable registry or an invariant
// violation fails the run.
//
// Parameters:
//   - ctx: Bounds the registry reads; file scanning is local and fast
//
// Returns:
//   - *Result: Findings in entity-id order with aggregate counts
//   - error: Fatal failures only, per the policy above
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := e.now()

	var (
		cfg     *corpus.Corpus
		dash    *corpus.Corpus
		helpers []helper.Entity

		cfgErr  error
		dashErr error
		discErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cfg, cfgErr = e.loadConfig(e.configDir)
		if cfgErr == nil {
			dash, dashErr = e.loadStorage(e.storageDir)
		}
	}()
	go func() {
		defer wg.Done()
		helpers, discErr = e.discovery.Discover(ctx)
	}()
	wg.Wait()

	if cfgErr != nil {
		return nil, fmt.Errorf("loading corpus: %w", cfgErr)
	}
	if discErr != nil {
		return nil, fmt.Errorf("discovering helpers: %w", discErr)
	}
	if len(helpers) == 0 {
		// A registry with no helpers is a valid, if suspicious, state:
		// discovery succeeded, there is simply nothing to audit. An empty
		// report also surfaces a token with the wrong scope faster than a
		// failed run would.
		e.logger.Warn("no helper entities discovered; reports will be empty")
	}

	loadErrors := append([]corpus.LoadError{}, cfg.Errors...)
	if dashErr != nil {
		// Degrade to "no dashboard evidence" rather than failing the run.
		e.logger.Warn("dashboard storage unreadable", "dir", e.storageDir, "error", dashErr)
		loadErrors = append(loadErrors, corpus.LoadError{Path: e.storageDir, Err: dashErr.Error()})
		dash = &corpus.Corpus{}
	}

	index := scan.NewIndex()

	for _, doc := range cfg.Documents {
		ys, err := scan.ScanYAML(doc)
		if err != nil {
			e.logger.Warn("yaml parse failure", "path", doc.Path, "error", err)
			loadErrors = append(loadErrors, corpus.LoadError{Path: doc.Path, Err: err.Error()})
		}
		if ys != nil {
			index.AddAll(ys.Hits)
			index.AddAll(scan.ScanTemplate(doc))
			index.AddAll(scan.InferNaming(doc.Path, ys.Names, helpers, e.naming))
		}
	}

	loadErrors = append(loadErrors, dash.Errors...)
	for _, doc := range dash.Documents {
		hits, err := scan.ScanDashboard(doc)
		if err != nil {
			e.logger.Warn("dashboard parse failure", "path", doc.Path, "error", err)
			loadErrors = append(loadErrors, corpus.LoadError{Path: doc.Path, Err: err.Error()})
			continue
		}
		index.AddAll(hits)
	}

	e.logger.Debug("reference index assembled",
		"documents", len(cfg.Documents)+len(dash.Documents),
		"hits", index.Size(),
		"referenced_entities", len(index.Entities()),
	)

	findings := make([]Finding, 0, len(helpers))
	for _, h := range helpers {
		hits := index.Hits(h.EntityID)
		findings = append(findings, Finding{
			Entity:                h,
			Classification:        Classify(hits),
			RequiresManualRemoval: RequiresManualRemoval(h),
			Hits:                  hits,
		})
	}

	if err := verifyFindings(findings); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      e.newID(),
		Timestamp:  start,
		Helpers:    findings,
		Counts:     tally(findings),
		LoadErrors: loadErrors,
	}

	e.logger.Info("analysis complete",
		"run_id", result.RunID,
		"helpers", result.Counts.Total,
		"actively_used", result.Counts.ByClassification[ActivelyUsed],
		"dashboard_only", result.Counts.ByClassification[DashboardOnly],
		"truly_orphaned", result.Counts.ByClassification[TrulyOrphaned],
		"load_errors", len(loadErrors),
	)

	return result, nil
}

// verifyFindings re-derives every classification and checks exclusivity.
// A mismatch aborts the run: an inconsistent report is worse than none.
func verifyFindings(findings []Finding) error {
	seen := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		if _, dup := seen[f.Entity.EntityID]; dup {
			return fmt.Errorf("%w: %s classified twice", ErrInvariantViolation, f.Entity.EntityID)
		}
		seen[f.Entity.EntityID] = struct{}{}

		if got := Classify(f.Hits); got != f.Classification {
			return fmt.Errorf("%w: %s is %s, reclassifies as %s",
				ErrInvariantViolation, f.Entity.EntityID, f.Classification, got)
		}
		if f.Classification == TrulyOrphaned && len(f.Hits) > 0 {
			return fmt.Errorf("%w: %s orphaned with %d hits",
				ErrInvariantViolation, f.Entity.EntityID, len(f.Hits))
		}
	}
	return nil
}
