// Package analysis is the classification engine: it merges reference
// evidence from every scanner into a per-helper hit set, derives each
// helper's usage category and produces the immutable run result.
//
// Classification is a pure function of a helper's hits. Any hit from
// automation, script or template sources makes the helper actively_used;
// hits exclusively from dashboard storage make it dashboard_only; no hits
// means truly_orphaned. The engine re-derives every classification before
// returning and aborts on a mismatch rather than emit an inconsistent
// report.
//
// The package also owns the deletion gate (the validation that decides
// which action-list entries may proceed to deletion), the report artifact
// contracts and the SQLite-backed run history.
package analysis
