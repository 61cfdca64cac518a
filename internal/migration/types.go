package migration

import (
	"context"
	"database/sql"
	"time"
)

// Migration represents a single versioned schema change unit.
type Migration struct {
	Version     int    // Numeric version parsed from the file name (e.g. 3 for "0003_...")
	Name        string // Original file name
	Description string // Human-readable description
	SQL         string // SQL statements to execute
	Checksum    string // SHA-256 of the file content
}

// AppliedMigration is a row from the version tracking table.
type AppliedMigration struct {
	Version       int
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status describes the migration state of a database at a point in time.
type Status struct {
	CurrentVersion int // Highest applied version, 0 when nothing is applied
	PendingCount   int
	Applied        []AppliedMigration
	Pending        []Migration
}

// Source provides the ordered migration set bundled with the deployable
// artifact.
type Source interface {
	// Migrations returns all available migrations sorted by ascending version.
	Migrations() ([]Migration, error)
}

// Executor applies migrations against the target database.
type Executor interface {
	// EnsureVersionTable creates the version tracking table if missing.
	EnsureVersionTable(ctx context.Context) error

	// VersionTablePresent reports whether the tracking table exists, without
	// creating it.
	VersionTablePresent(ctx context.Context) (bool, error)

	// ExecuteMigration runs a single migration inside a transaction.
	ExecuteMigration(ctx context.Context, m Migration) error

	// RecordMigration writes a row to the tracking table for m.
	RecordMigration(ctx context.Context, m Migration, executionTime time.Duration) error

	// AppliedMigrations returns all recorded migrations in ascending version
	// order.
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}

// UnlockFunc releases a previously acquired migration lock.
type UnlockFunc func(context.Context) error

// Dialect abstracts the database-specific pieces of the engine.
type Dialect interface {
	// Name identifies the dialect ("sqlite" or "postgres").
	Name() string

	// CreateVersionTableSQL returns the DDL for the tracking table.
	CreateVersionTableSQL() string

	// VersionTableExistsSQL returns a query yielding a count > 0 when the
	// tracking table exists.
	VersionTableExistsSQL() string

	// InsertVersionSQL returns the insert statement for a tracking row with
	// placeholders for version, applied_at, checksum and execution_time_ms.
	InsertVersionSQL() string

	// SelectVersionsSQL returns the query listing all tracking rows ordered by
	// ascending version.
	SelectVersionsSQL() string

	// ColumnExists reports whether table has a column with the given name.
	ColumnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error)

	// AcquireLock blocks until the migration lock is held by holder or ctx
	// expires. The returned UnlockFunc releases it.
	AcquireLock(ctx context.Context, db *sql.DB, holder string) (UnlockFunc, error)
}
