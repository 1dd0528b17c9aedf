package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRunMetrics records one analysis run's headline numbers.
//
// Plotting orphan counts over time shows whether an installation is
// accumulating dead helpers faster than they are cleaned up. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - runID: The analysis run id
//   - timestamp: The run's start time
//   - total, activelyUsed, dashboardOnly, trulyOrphaned: Classification counts
//   - loadErrors: Files that could not be read or parsed
//   - duration: Wall-clock run duration
func (c *Client) WriteRunMetrics(runID string, timestamp time.Time, total, activelyUsed, dashboardOnly, trulyOrphaned, loadErrors int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"analysis_run",
		map[string]string{
			"run_id": runID,
		},
		map[string]interface{}{
			"total_helpers":  total,
			"actively_used":  activelyUsed,
			"dashboard_only": dashboardOnly,
			"truly_orphaned": trulyOrphaned,
			"load_errors":    loadErrors,
			"duration_ms":    duration.Milliseconds(),
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeletionMetrics records the outcome counts of one deletion pass.
//
// Parameters:
//   - runID: The deletion run id
//   - deleted, failed: Outcome counts
//   - dryRun: Whether the pass mutated anything
func (c *Client) WriteDeletionMetrics(runID string, deleted, failed int, dryRun bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"deletion_run",
		map[string]string{
			"run_id": runID,
		},
		map[string]interface{}{
			"deleted": deleted,
			"failed":  failed,
			"dry_run": dryRun,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
