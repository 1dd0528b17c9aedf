// Package database provides the SQLite connection and schema migration
// layer for the run-history store.
//
// Every analysis run and deletion record is persisted through a connection
// opened here. The schema is applied from embedded .up.sql files at start,
// tracked in a schema_migrations table so restarts are idempotent. SQLite
// is opened with WAL mode and a single-connection pool: the store has one
// writer (the engine) and occasional readers (the report API).
package database
