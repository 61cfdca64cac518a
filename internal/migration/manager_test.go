package migration

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/example/petcare-bootstrap/internal/testfixtures"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sourceFromMap(files map[string]string) Source {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return NewFSSource(fsys, ".")
}

func newTestManager(t *testing.T, files map[string]string) (*Manager, *sql.DB) {
	t.Helper()
	db := testfixtures.OpenSQLite(t)
	executor := NewSQLExecutor(db, NewSQLiteDialect())
	return NewManager(sourceFromMap(files), executor, discardLogger()), db
}

func TestManager_MarkerPresent(t *testing.T) {
	manager, _ := newTestManager(t, map[string]string{
		"0001_create_user.sql": "CREATE TABLE app_user (id INTEGER PRIMARY KEY);",
	})
	ctx := context.Background()

	present, err := manager.MarkerPresent(ctx)
	if err != nil {
		t.Fatalf("MarkerPresent failed: %v", err)
	}
	if present {
		t.Fatalf("expected no marker on a fresh database")
	}

	if _, err := manager.Apply(ctx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	present, err = manager.MarkerPresent(ctx)
	if err != nil {
		t.Fatalf("MarkerPresent failed: %v", err)
	}
	if !present {
		t.Fatalf("expected marker after applying migrations")
	}
}

func TestManager_MarkerPresent_EmptyTableIsAbsent(t *testing.T) {
	manager, db := newTestManager(t, nil)
	ctx := context.Background()

	// The table existing with no rows still means "never migrated".
	executor := NewSQLExecutor(db, NewSQLiteDialect())
	if err := executor.EnsureVersionTable(ctx); err != nil {
		t.Fatalf("EnsureVersionTable failed: %v", err)
	}

	present, err := manager.MarkerPresent(ctx)
	if err != nil {
		t.Fatalf("MarkerPresent failed: %v", err)
	}
	if present {
		t.Fatalf("expected empty version table to count as no marker")
	}
}

func TestManager_Apply(t *testing.T) {
	manager, db := newTestManager(t, map[string]string{
		"0001_create_user.sql": "CREATE TABLE app_user (id INTEGER PRIMARY KEY);",
		"0002_add_pets.sql":    "CREATE TABLE pet (id INTEGER PRIMARY KEY, owner_id INTEGER NOT NULL);",
	})
	ctx := context.Background()

	applied, err := manager.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", applied)
	}

	for _, table := range []string{"app_user", "pet"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}

	// Re-running at head must be a no-op.
	applied, err = manager.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply at head failed: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected no-op at head, got %d migrations applied", applied)
	}
}

func TestManager_Apply_StopsAtFirstFailure(t *testing.T) {
	manager, db := newTestManager(t, map[string]string{
		"0001_create_user.sql": "CREATE TABLE app_user (id INTEGER PRIMARY KEY);",
		"0002_broken.sql":      "NOT VALID SQL;",
		"0003_add_pets.sql":    "CREATE TABLE pet (id INTEGER PRIMARY KEY);",
	})
	ctx := context.Background()

	applied, err := manager.Apply(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if applied != 1 {
		t.Errorf("expected 1 migration applied before failure, got %d", applied)
	}

	// The failing and following migrations must not have run.
	var count int
	if scanErr := db.QueryRow("SELECT COUNT(*) FROM pet").Scan(&count); scanErr == nil {
		t.Errorf("expected pet table to not exist after aborted run")
	}

	status, statusErr := manager.Status(ctx)
	if statusErr != nil {
		t.Fatalf("Status failed: %v", statusErr)
	}
	if status.CurrentVersion != 1 {
		t.Errorf("expected database left at version 1, got %d", status.CurrentVersion)
	}
}

func TestManager_Pending_SequenceGap(t *testing.T) {
	manager, _ := newTestManager(t, map[string]string{
		"0001_create_user.sql": "CREATE TABLE app_user (id INTEGER PRIMARY KEY);",
		"0003_add_pets.sql":    "CREATE TABLE pet (id INTEGER PRIMARY KEY);",
	})

	_, err := manager.Pending(context.Background())
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for gap in sequence, got %v", err)
	}
}

func TestManager_Pending_AppliedVersionMissingFromSet(t *testing.T) {
	ctx := context.Background()
	manager, db := newTestManager(t, map[string]string{
		"0001_create_user.sql": "CREATE TABLE app_user (id INTEGER PRIMARY KEY);",
	})

	if _, err := manager.Apply(ctx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// Record a version that has no corresponding file.
	executor := NewSQLExecutor(db, NewSQLiteDialect())
	if err := executor.RecordMigration(ctx, Migration{Version: 9, Name: "0009_ghost.sql"}, 0); err != nil {
		t.Fatalf("RecordMigration failed: %v", err)
	}

	_, err := manager.Pending(ctx)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for unknown applied version, got %v", err)
	}
}

func TestManager_Stamp(t *testing.T) {
	manager, db := newTestManager(t, map[string]string{
		"0001_create_user.sql": "CREATE TABLE app_user (id INTEGER PRIMARY KEY);",
		"0002_add_pets.sql":    "CREATE TABLE pet (id INTEGER PRIMARY KEY);",
	})
	ctx := context.Background()

	stamped, err := manager.Stamp(ctx)
	if err != nil {
		t.Fatalf("Stamp failed: %v", err)
	}
	if stamped != 2 {
		t.Fatalf("expected 2 versions stamped, got %d", stamped)
	}

	// Stamping records versions without executing migration bodies.
	var count int
	if scanErr := db.QueryRow("SELECT COUNT(*) FROM app_user").Scan(&count); scanErr == nil {
		t.Errorf("expected app_user to not exist after stamp")
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.CurrentVersion != 2 {
		t.Errorf("expected current version 2 after stamp, got %d", status.CurrentVersion)
	}
	if status.PendingCount != 0 {
		t.Errorf("expected no pending migrations after stamp, got %d", status.PendingCount)
	}

	// Stamping again is a no-op.
	stamped, err = manager.Stamp(ctx)
	if err != nil {
		t.Fatalf("Stamp failed on second run: %v", err)
	}
	if stamped != 0 {
		t.Errorf("expected second stamp to be a no-op, got %d", stamped)
	}
}

func TestManager_StatusAndHistory(t *testing.T) {
	manager, _ := newTestManager(t, map[string]string{
		"0001_create_user.sql": "CREATE TABLE app_user (id INTEGER PRIMARY KEY);",
		"0002_add_pets.sql":    "CREATE TABLE pet (id INTEGER PRIMARY KEY);",
		"0003_add_species.sql": "CREATE TABLE species (id INTEGER PRIMARY KEY);",
	})
	ctx := context.Background()

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.CurrentVersion != 0 || status.PendingCount != 3 {
		t.Fatalf("unexpected fresh status: current=%d pending=%d", status.CurrentVersion, status.PendingCount)
	}

	if _, err := manager.Apply(ctx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	status, err = manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.CurrentVersion != 3 || status.PendingCount != 0 {
		t.Fatalf("unexpected status after apply: current=%d pending=%d", status.CurrentVersion, status.PendingCount)
	}

	history, err := manager.History(ctx)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	for i, entry := range history {
		if entry.Version != i+1 {
			t.Errorf("history entry %d has version %d", i, entry.Version)
		}
	}
}
