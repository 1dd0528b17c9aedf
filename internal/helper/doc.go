// Package helper models Home Assistant helper entities and discovers them
// from the live registry.
//
// A "helper" is a lightweight, registry-managed entity used to hold state for
// automations and dashboards: toggles, counters, timers, template sensors and
// similar. Two populations exist:
//
//   - Direct domains (input_boolean, counter, timer, ...): every entity in
//     the domain is a helper, removable via the <domain>.remove service.
//   - Candidate domains (sensor, binary_sensor, switch, ...): helpers created
//     by helper *platforms* (template, statistics, derivative, ...) live
//     alongside integration entities and are identified by attribute shape.
//
// Candidate detection is deliberately conservative: any integration marker
// attribute disqualifies the entity. Missing a helper here only means it is
// never offered for deletion, which is the safe direction.
//
// # Thread Safety
//
// Discovery is safe for concurrent use; each Discover call produces an
// independent snapshot.
package helper
