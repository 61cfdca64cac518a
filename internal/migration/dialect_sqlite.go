package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const lockPollInterval = 250 * time.Millisecond

// SQLiteDialect implements Dialect for SQLite databases.
//
// SQLite has no advisory locks, so mutual exclusion across concurrently
// starting replicas uses a single-row lease table. A lease that outlives its
// expiry is considered abandoned and may be taken over.
type SQLiteDialect struct {
	// Now supplies the clock used for lease bookkeeping. Defaults to time.Now.
	Now func() time.Time

	// LeaseDuration bounds how long a crashed holder can block others.
	LeaseDuration time.Duration
}

// NewSQLiteDialect returns a dialect with default lease settings.
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{
		Now:           time.Now,
		LeaseDuration: 5 * time.Minute,
	}
}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) CreateVersionTableSQL() string {
	return `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms INTEGER
		)
	`
}

func (d *SQLiteDialect) VersionTableExistsSQL() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`
}

func (d *SQLiteDialect) InsertVersionSQL() string {
	return `INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`
}

func (d *SQLiteDialect) SelectVersionsSQL() string {
	return `
		SELECT version, applied_at, COALESCE(checksum, ''), COALESCE(execution_time_ms, 0)
		FROM schema_migrations
		ORDER BY version ASC
	`
}

// ColumnExists inspects the table layout via PRAGMA table_info. The table name
// is interpolated because PRAGMA arguments cannot be bound; callers pass fixed
// contract identifiers, never user input.
func (d *SQLiteDialect) ColumnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, NewDatabaseError("inspect table "+table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, NewDatabaseError("scan table info for "+table, err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, NewDatabaseError("iterate table info for "+table, err)
	}
	return false, nil
}

// AcquireLock claims the lease row, polling until ctx expires. Expired leases
// from crashed holders are taken over.
func (d *SQLiteDialect) AcquireLock(ctx context.Context, db *sql.DB, holder string) (UnlockFunc, error) {
	createSQL := `
		CREATE TABLE IF NOT EXISTS schema_lock (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			holder TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return nil, NewDatabaseError("create schema_lock table", err)
	}

	claimSQL := `
		INSERT INTO schema_lock (id, holder, expires_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET holder = excluded.holder, expires_at = excluded.expires_at
		WHERE schema_lock.expires_at < ?
	`

	for {
		now := d.now()
		expiry := now.Add(d.LeaseDuration).UTC().Format(time.RFC3339)
		res, err := db.ExecContext(ctx, claimSQL, holder, expiry, now.UTC().Format(time.RFC3339))
		if err != nil {
			return nil, NewDatabaseError("claim migration lock", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, NewDatabaseError("claim migration lock", err)
		}
		if affected == 1 {
			return d.unlockFunc(db, holder), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

func (d *SQLiteDialect) unlockFunc(db *sql.DB, holder string) UnlockFunc {
	return func(ctx context.Context) error {
		if _, err := db.ExecContext(ctx, `DELETE FROM schema_lock WHERE id = 1 AND holder = ?`, holder); err != nil {
			return NewDatabaseError("release migration lock", err)
		}
		return nil
	}
}

func (d *SQLiteDialect) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
