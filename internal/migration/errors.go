package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed indicates that a migration execution failed.
	ErrMigrationFailed = errors.New("migration execution failed")

	// ErrInvalidMigrationFile indicates that a migration file is malformed.
	ErrInvalidMigrationFile = errors.New("invalid migration file format")

	// ErrInvalidVersion indicates a non-numeric or out-of-range version.
	ErrInvalidVersion = errors.New("invalid migration version")

	// ErrDuplicateVersion indicates two migrations sharing one version.
	ErrDuplicateVersion = errors.New("duplicate migration version")

	// ErrVersionConflict indicates a gap in the set or an applied version with
	// no corresponding migration file.
	ErrVersionConflict = errors.New("migration version conflict")

	// ErrLockNotAcquired indicates the migration lock could not be obtained
	// before the deadline.
	ErrLockNotAcquired = errors.New("migration lock not acquired")
)

// MigrationError wraps a failure tied to a specific migration unit.
type MigrationError struct {
	Version   int
	Name      string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("migration %d (%s): %s: %v", e.Version, e.Name, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration (%s): %s: %v", e.Name, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// NewMigrationError creates a MigrationError with context.
func NewMigrationError(version int, name, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, Name: name, Operation: operation, Err: err}
}

// DatabaseError wraps a database-level failure during migration operations.
type DatabaseError struct {
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError creates a DatabaseError with context.
func NewDatabaseError(operation string, err error) *DatabaseError {
	return &DatabaseError{Operation: operation, Err: err}
}
