package migration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLExecutor implements Executor on top of database/sql for any supported
// dialect.
type SQLExecutor struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLExecutor creates an executor bound to db and its dialect.
func NewSQLExecutor(db *sql.DB, dialect Dialect) *SQLExecutor {
	return &SQLExecutor{db: db, dialect: dialect}
}

// EnsureVersionTable creates the schema_migrations table if it doesn't exist.
func (e *SQLExecutor) EnsureVersionTable(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, e.dialect.CreateVersionTableSQL()); err != nil {
		return NewDatabaseError("create schema_migrations table", err)
	}
	return nil
}

// VersionTablePresent reports whether the tracking table exists without
// creating it. This is the Migration State marker presence check.
func (e *SQLExecutor) VersionTablePresent(ctx context.Context) (bool, error) {
	var count int
	if err := e.db.QueryRowContext(ctx, e.dialect.VersionTableExistsSQL()).Scan(&count); err != nil {
		return false, NewDatabaseError("check schema_migrations table", err)
	}
	return count > 0, nil
}

// ExecuteMigration runs a single migration within a transaction. Statements
// are split on semicolons because not every driver accepts multi-statement
// exec calls.
func (e *SQLExecutor) ExecuteMigration(ctx context.Context, m Migration) (err error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewDatabaseError("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	statements := splitStatements(m.SQL)
	if len(statements) == 0 {
		err = NewMigrationError(m.Version, m.Name, "parse SQL",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
		return err
	}

	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			err = NewMigrationError(m.Version, m.Name,
				fmt.Sprintf("execute statement %d", i+1),
				fmt.Errorf("%w: %v", ErrMigrationFailed, execErr))
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		err = NewDatabaseError("commit transaction", err)
		return err
	}
	return nil
}

// RecordMigration records a successfully applied (or stamped) migration in the
// tracking table.
func (e *SQLExecutor) RecordMigration(ctx context.Context, m Migration, executionTime time.Duration) error {
	appliedAt := time.Now().UTC().Format(time.RFC3339)
	_, err := e.db.ExecContext(ctx, e.dialect.InsertVersionSQL(),
		m.Version, appliedAt, m.Checksum, executionTime.Milliseconds())
	if err != nil {
		return NewDatabaseError(fmt.Sprintf("record migration %d", m.Version), err)
	}
	return nil
}

// AppliedMigrations returns all tracking rows in ascending version order.
func (e *SQLExecutor) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx, e.dialect.SelectVersionsSQL())
	if err != nil {
		return nil, NewDatabaseError("list applied migrations", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			version         int
			appliedAtStr    string
			checksum        string
			executionTimeMs int64
		)
		if err := rows.Scan(&version, &appliedAtStr, &checksum, &executionTimeMs); err != nil {
			return nil, NewDatabaseError("scan applied migration", err)
		}
		appliedAt, parseErr := time.Parse(time.RFC3339, appliedAtStr)
		if parseErr != nil {
			appliedAt = time.Time{}
		}
		applied = append(applied, AppliedMigration{
			Version:       version,
			AppliedAt:     appliedAt,
			ExecutionTime: time.Duration(executionTimeMs) * time.Millisecond,
			Checksum:      checksum,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("iterate applied migrations", err)
	}
	return applied, nil
}

// splitStatements breaks SQL content into executable statements, dropping
// comment-only fragments.
func splitStatements(content string) []string {
	var statements []string
	for _, stmt := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
