// Package corpus loads a Home Assistant configuration tree into memory for
// scanning.
//
// The corpus is a flat sequence of (path, text) pairs covering every YAML
// file under the configuration root, including packages/ and blueprints/.
// Loading is a pure read: nothing is parsed here, and a single unreadable
// file is recorded rather than propagated so one bad file never aborts an
// analysis run.
package corpus
