// Package testfixtures provides shared helpers for database-backed tests.
package testfixtures

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens a temporary file-backed SQLite database that is cleaned up
// with the test. File-backed rather than :memory: so tests can open the same
// database through multiple handles.
func OpenSQLite(tb testing.TB) *sql.DB {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "bootstrap.db")
	db := OpenSQLiteAt(tb, path)
	return db
}

// OpenSQLiteAt opens the SQLite database at path and registers cleanup with tb.
func OpenSQLiteAt(tb testing.TB, path string) *sql.DB {
	tb.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		tb.Fatalf("failed to open test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		tb.Fatalf("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		tb.Fatalf("failed to enable foreign keys: %v", err)
	}

	tb.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
