package analysis

import "errors"

var (
	// ErrInvariantViolation indicates a helper ended the run without a
	// consistent classification. This is a logic defect; the run aborts
	// rather than emit a report that could mislabel an entity.
	ErrInvariantViolation = errors.New("analysis: classification invariant violated")

	// ErrNoRuns indicates the run-history store holds no completed runs.
	ErrNoRuns = errors.New("analysis: no runs recorded")
)
