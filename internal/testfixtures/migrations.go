package testfixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteMigration writes a migration file named NNNN_name.sql into dir and
// returns its path.
func WriteMigration(tb testing.TB, dir string, version int, name, body string) string {
	tb.Helper()

	filename := fmt.Sprintf("%04d_%s.sql", version, name)
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		tb.Fatalf("failed to write migration %s: %v", filename, err)
	}
	return path
}

// MigrationDir creates a scratch directory populated with the given migration
// bodies keyed by version, using a generic name per file.
func MigrationDir(tb testing.TB, bodies map[int]string) string {
	tb.Helper()

	dir := tb.TempDir()
	for version, body := range bodies {
		WriteMigration(tb, dir, version, fmt.Sprintf("migration_%d", version), body)
	}
	return dir
}
