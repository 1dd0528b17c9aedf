package analysis

import (
	"github.com/ferncroft/helper-audit/internal/helper"
	"github.com/ferncroft/helper-audit/internal/scan"
)

// Classification is the usage category assigned to each helper. It is
// derived, never stored independently: always a pure function of the
// helper's reference hits.
type Classification string

const (
	// ActivelyUsed: at least one hit from automation/script/template logic.
	ActivelyUsed Classification = "actively_used"

	// DashboardOnly: referenced, but every hit comes from dashboard storage.
	// The helper is displayed, not driven.
	DashboardOnly Classification = "dashboard_only"

	// TrulyOrphaned: no reference found anywhere.
	TrulyOrphaned Classification = "truly_orphaned"
)

// Classify derives the usage category from a helper's hits.
//
// Any non-dashboard hit, however low its confidence, promotes the helper
// to actively_used. The bias is deliberate: under-reporting orphans is
// acceptable, a false orphan that leads to deletion is not.
func Classify(hits []scan.Hit) Classification {
	if len(hits) == 0 {
		return TrulyOrphaned
	}
	for _, h := range hits {
		if h.Source != scan.SourceDashboard {
			return ActivelyUsed
		}
	}
	return DashboardOnly
}

// RequiresManualRemoval reports whether a helper's lifecycle is owned by
// static configuration rather than the mutable registry. Template-type
// helpers cannot be removed through a registry service call; deleting them
// means editing YAML.
func RequiresManualRemoval(e helper.Entity) bool {
	return helper.IsTemplateType(e)
}
