// Package database opens the target database from a connection URL, selecting
// the driver and migration dialect from the URL scheme.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/example/petcare-bootstrap/internal/migration"
)

// Open parses the connection URL and returns a configured pool together with
// the matching migration dialect. The connection is not validated here; the
// bootstrapper's preflight step pings with retry.
func Open(ctx context.Context, rawURL string) (*sql.DB, migration.Dialect, error) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return nil, nil, fmt.Errorf("database URL is empty")
	}

	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err := sql.Open("pgx", url)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres database: %w", err)
		}
		configurePool(db)
		return db, migration.NewPostgresDialect(), nil

	default:
		dsn := strings.TrimPrefix(url, "sqlite://")
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite database: %w", err)
		}
		configurePool(db)
		if err := configureSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, migration.NewSQLiteDialect(), nil
	}
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// configureSQLite applies the PRAGMA set required for safe concurrent access.
func configureSQLite(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 30000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	return nil
}
