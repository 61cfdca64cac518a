// Package migration implements the versioned schema migration engine used by
// the startup bootstrapper.
//
// A Source supplies the ordered migration set (embedded by default), an
// Executor applies individual units against the database, and the Manager
// orchestrates the two: pending detection, sequential apply, baseline
// stamping, and history reporting. Database specifics (version table DDL,
// column introspection, the migration lock) live behind the Dialect interface
// so the same engine drives both SQLite and PostgreSQL targets.
package migration
