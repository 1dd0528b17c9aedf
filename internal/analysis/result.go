package analysis

import (
	"time"

	"github.com/ferncroft/helper-audit/internal/corpus"
	"github.com/ferncroft/helper-audit/internal/helper"
	"github.com/ferncroft/helper-audit/internal/scan"
)

// Finding is one helper with its classification and supporting evidence.
type Finding struct {
	Entity                helper.Entity  `json:"entity"`
	Classification        Classification `json:"classification"`
	RequiresManualRemoval bool           `json:"requires_manual_removal,omitempty"`

	// Hits are the retained reference evidence, in discovery order.
	Hits []scan.Hit `json:"references,omitempty"`
}

// Counts aggregates a run's findings for the summary report.
type Counts struct {
	Total            int                    `json:"total"`
	ByDomain         map[string]int         `json:"by_domain"`
	ByClassification map[Classification]int `json:"by_classification"`
}

// Result is the engine's sole output for one run. Immutable once
// produced; the report generator and run-history store consume it as-is.
type Result struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`

	// Helpers are the findings in entity-id order.
	Helpers []Finding `json:"helpers"`

	Counts Counts `json:"counts"`

	// LoadErrors lists files that could not be read or parsed. Recoverable
	// per policy: surfaced here, never fatal.
	LoadErrors []corpus.LoadError `json:"load_errors,omitempty"`
}

// Finding returns the finding for an entity ID, if present.
func (r *Result) Finding(entityID string) (Finding, bool) {
	for _, f := range r.Helpers {
		if f.Entity.EntityID == entityID {
			return f, true
		}
	}
	return Finding{}, false
}

// Orphans returns the findings classified truly_orphaned, in order.
func (r *Result) Orphans() []Finding {
	return r.byClassification(TrulyOrphaned)
}

// DashboardOnly returns the findings classified dashboard_only, in order.
func (r *Result) DashboardOnly() []Finding {
	return r.byClassification(DashboardOnly)
}

func (r *Result) byClassification(c Classification) []Finding {
	var out []Finding
	for _, f := range r.Helpers {
		if f.Classification == c {
			out = append(out, f)
		}
	}
	return out
}

// tally builds the aggregate counts from a finding list.
func tally(findings []Finding) Counts {
	counts := Counts{
		Total:            len(findings),
		ByDomain:         make(map[string]int),
		ByClassification: make(map[Classification]int),
	}
	for _, f := range findings {
		counts.ByDomain[f.Entity.Domain]++
		counts.ByClassification[f.Classification]++
	}
	return counts
}
