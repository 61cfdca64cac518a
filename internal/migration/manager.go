package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/petcare-bootstrap/internal/logging"
)

// Manager orchestrates the migration engine: pending detection, sequential
// apply, baseline stamping and history reporting. All state is re-queried from
// the database on every call; nothing is cached across calls.
type Manager struct {
	source   Source
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger falls back to slog.Default.
func NewManager(source Source, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{source: source, executor: executor, logger: logger}
}

func (m *Manager) log(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return m.logger
}

// MarkerPresent reports whether the Migration State marker exists: the
// tracking table is present and holds at least one row.
func (m *Manager) MarkerPresent(ctx context.Context) (bool, error) {
	present, err := m.executor.VersionTablePresent(ctx)
	if err != nil {
		return false, fmt.Errorf("check version table: %w", err)
	}
	if !present {
		return false, nil
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return false, fmt.Errorf("read applied migrations: %w", err)
	}
	return len(applied) > 0, nil
}

// Pending returns the migrations that are available but not yet applied, in
// ascending version order. The sequence is validated first: no gaps between
// the lowest and highest available version, and every applied version must
// have a corresponding migration file.
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	available, err := m.source.Migrations()
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}

	if err := m.executor.EnsureVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("initialize version table: %w", err)
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedSet := make(map[int]bool, len(applied))
	for _, a := range applied {
		appliedSet[a.Version] = true
	}

	var pending []Migration
	for _, mig := range available {
		if !appliedSet[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Apply executes all pending migrations in ascending version order and returns
// how many ran. The first failure aborts the run; the database is left at the
// last successfully applied version.
func (m *Manager) Apply(ctx context.Context) (int, error) {
	logger := m.log(ctx)

	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		logger.Info("schema is up to date, no pending migrations")
		return 0, nil
	}

	logger.Info("applying pending migrations", "count", len(pending))

	for i, mig := range pending {
		start := time.Now()
		logger.Info("executing migration",
			"version", mig.Version,
			"description", mig.Description,
			"progress", fmt.Sprintf("%d/%d", i+1, len(pending)))

		if err := m.executor.ExecuteMigration(ctx, mig); err != nil {
			logger.Error("migration failed", "version", mig.Version, "error", err)
			return i, err
		}

		elapsed := time.Since(start)
		if err := m.executor.RecordMigration(ctx, mig, elapsed); err != nil {
			logger.Error("failed to record migration", "version", mig.Version, "error", err)
			return i, err
		}

		logger.Info("migration applied", "version", mig.Version, "duration", elapsed)
	}

	return len(pending), nil
}

// Stamp records every available migration as applied without executing any
// migration bodies. This is the baseline operation for adopting version
// tracking onto a database whose schema already matches head.
func (m *Manager) Stamp(ctx context.Context) (int, error) {
	logger := m.log(ctx)

	available, err := m.source.Migrations()
	if err != nil {
		return 0, fmt.Errorf("scan migrations: %w", err)
	}
	if err := m.executor.EnsureVersionTable(ctx); err != nil {
		return 0, fmt.Errorf("initialize version table: %w", err)
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("read applied migrations: %w", err)
	}

	appliedSet := make(map[int]bool, len(applied))
	for _, a := range applied {
		appliedSet[a.Version] = true
	}

	stamped := 0
	for _, mig := range available {
		if appliedSet[mig.Version] {
			continue
		}
		if err := m.executor.RecordMigration(ctx, mig, 0); err != nil {
			return stamped, err
		}
		stamped++
	}

	if stamped > 0 {
		head := available[len(available)-1].Version
		logger.Info("stamped database at head revision", "head", head, "stamped", stamped)
	}
	return stamped, nil
}

// Status returns the current migration state of the database.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.EnsureVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("initialize version table: %w", err)
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	current := 0
	for _, a := range applied {
		if a.Version > current {
			current = a.Version
		}
	}

	return &Status{
		CurrentVersion: current,
		PendingCount:   len(pending),
		Applied:        applied,
		Pending:        pending,
	}, nil
}

// History returns every recorded migration with timestamps and execution
// details, oldest first.
func (m *Manager) History(ctx context.Context) ([]AppliedMigration, error) {
	if err := m.executor.EnsureVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("initialize version table: %w", err)
	}
	return m.executor.AppliedMigrations(ctx)
}

// validateSequence ensures the available set has no version gaps and that
// every applied version still has a corresponding file.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	if len(available) == 0 {
		return nil
	}

	availableSet := make(map[int]bool, len(available))
	for _, mig := range available {
		availableSet[mig.Version] = true
	}

	minVersion := available[0].Version
	maxVersion := available[len(available)-1].Version
	for v := minVersion; v <= maxVersion; v++ {
		if !availableSet[v] {
			return fmt.Errorf("%w: missing migration version %d in sequence", ErrVersionConflict, v)
		}
	}

	for _, a := range applied {
		if !availableSet[a.Version] {
			return fmt.Errorf("%w: applied migration %d not found in available migrations",
				ErrVersionConflict, a.Version)
		}
	}
	return nil
}
