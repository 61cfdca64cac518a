package migrations

import (
	"testing"

	"github.com/example/petcare-bootstrap/internal/migration"
)

func TestEmbeddedSetIsValid(t *testing.T) {
	set, err := migration.NewFSSource(FS, ".").Migrations()
	if err != nil {
		t.Fatalf("embedded migration set failed to parse: %v", err)
	}
	if len(set) == 0 {
		t.Fatalf("expected at least one embedded migration")
	}

	// Versions must be a contiguous run starting at 1.
	for i, m := range set {
		if m.Version != i+1 {
			t.Errorf("expected version %d at position %d, got %d", i+1, i, m.Version)
		}
		if m.Description == "" {
			t.Errorf("migration %s has no description", m.Name)
		}
		if m.Checksum == "" {
			t.Errorf("migration %s has no checksum", m.Name)
		}
	}
}
