// Package sqlite provides the SQLite-backed audit history store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// A run is one audit_runs row plus one audit_records row per schema; full
// records are kept as JSON next to the queryable stage columns.
//
// # Data Location
//
// By default, the database is stored at ~/.ecaudit/data/history.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
