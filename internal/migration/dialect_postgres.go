package migration

import (
	"context"
	"database/sql"
	"fmt"
)

// advisoryLockKey is the fixed pg_advisory_lock key scoping the migration
// step. Changing it would let two releases migrate concurrently.
const advisoryLockKey int64 = 0x7065746361726501

// PostgresDialect implements Dialect for PostgreSQL databases.
type PostgresDialect struct{}

// NewPostgresDialect returns the PostgreSQL dialect.
func NewPostgresDialect() *PostgresDialect { return &PostgresDialect{} }

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) CreateVersionTableSQL() string {
	return `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms BIGINT
		)
	`
}

func (d *PostgresDialect) VersionTableExistsSQL() string {
	return `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = 'schema_migrations'
	`
}

func (d *PostgresDialect) InsertVersionSQL() string {
	return `INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES ($1, $2, $3, $4)`
}

func (d *PostgresDialect) SelectVersionsSQL() string {
	return `
		SELECT version, applied_at, COALESCE(checksum, ''), COALESCE(execution_time_ms, 0)
		FROM schema_migrations
		ORDER BY version ASC
	`
}

func (d *PostgresDialect) ColumnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
	`
	var count int
	if err := db.QueryRowContext(ctx, query, table, column).Scan(&count); err != nil {
		return false, NewDatabaseError(fmt.Sprintf("inspect column %s.%s", table, column), err)
	}
	return count > 0, nil
}

// AcquireLock takes a session-level advisory lock on a pinned connection.
// pg_advisory_lock blocks until granted, so the deadline on ctx bounds the
// wait.
func (d *PostgresDialect) AcquireLock(ctx context.Context, db *sql.DB, holder string) (UnlockFunc, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, NewDatabaseError("open lock connection", err)
	}

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, advisoryLockKey); err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, ctx.Err())
		}
		return nil, NewDatabaseError("acquire advisory lock", err)
	}

	unlock := func(ctx context.Context) error {
		defer conn.Close()
		if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, advisoryLockKey); err != nil {
			return NewDatabaseError("release advisory lock", err)
		}
		return nil
	}
	return unlock, nil
}
