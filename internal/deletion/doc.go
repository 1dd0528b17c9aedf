// Package deletion executes validated helper removals.
//
// The runner holds the safety posture: it only acts on entities the
// deletion gate has approved, snapshots every candidate to a backup
// document and the record store before mutating, and degrades per entity
// on failure. Dry-run mode exercises the full pipeline without calling a
// single service.
package deletion
