package analysis

import (
	"strings"

	"github.com/ferncroft/helper-audit/internal/helper"
)

// ActionLine is one actionable entry parsed from the orphan action list.
type ActionLine struct {
	EntityID string
	Line     int
}

// ValidationError reports why one action-list entry was rejected by the
// deletion gate. Per-line: it never blocks processing of other lines.
type ValidationError struct {
	EntityID string `json:"entity_id"`
	Line     int    `json:"line"`
	Reason   string `json:"reason"`
}

// Gate rejection reasons.
const (
	ReasonNotOrphaned   = "not orphaned in latest analysis"
	ReasonManualRemoval = "requires manual config removal"
)

// GateResult is the deletion gate's verdict over an action list.
type GateResult struct {
	// Candidates are the validated deletion targets, in list order.
	Candidates []helper.Entity

	// AlreadyAbsent lists entries naming entities that no longer exist.
	// Not errors: the desired end state is already reached.
	AlreadyAbsent []ActionLine

	// Errors are the rejected entries with reasons.
	Errors []ValidationError
}

// ParseActionList extracts the actionable entries from an orphan action
// list. A line prefixed with the comment marker means "keep" and is
// excluded; so are blank lines and anything that is not an entity id.
// The entity id is the first whitespace-separated field, leaving the
// trailing annotation comment intact.
func ParseActionList(text string) []ActionLine {
	var lines []ActionLine
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}
		id := strings.Fields(line)[0]
		if !helper.ValidEntityID(id) {
			continue
		}
		lines = append(lines, ActionLine{EntityID: id, Line: i + 1})
	}
	return lines
}

// ValidateDeletions applies the deletion gate to parsed action-list
// entries. An entry passes only when the entity still exists, is not a
// template-type helper, and was classified truly_orphaned or
// dashboard_only in the most recent analysis.
//
// Pure: reads its arguments, mutates nothing.
//
// Parameters:
//   - lines: Actionable entries from ParseActionList
//   - live: Current helper entities from discovery
//   - latest: The most recent analysis result
//
// Returns:
//   - GateResult: Candidates, already-absent entries and rejections
func ValidateDeletions(lines []ActionLine, live []helper.Entity, latest *Result) GateResult {
	byID := make(map[string]helper.Entity, len(live))
	for _, e := range live {
		byID[e.EntityID] = e
	}

	var result GateResult
	for _, line := range lines {
		entity, exists := byID[line.EntityID]
		if !exists {
			result.AlreadyAbsent = append(result.AlreadyAbsent, line)
			continue
		}

		if RequiresManualRemoval(entity) {
			result.Errors = append(result.Errors, ValidationError{
				EntityID: line.EntityID,
				Line:     line.Line,
				Reason:   ReasonManualRemoval,
			})
			continue
		}

		finding, analysed := latest.Finding(line.EntityID)
		if !analysed || finding.Classification == ActivelyUsed {
			result.Errors = append(result.Errors, ValidationError{
				EntityID: line.EntityID,
				Line:     line.Line,
				Reason:   ReasonNotOrphaned,
			})
			continue
		}

		result.Candidates = append(result.Candidates, entity)
	}
	return result
}
