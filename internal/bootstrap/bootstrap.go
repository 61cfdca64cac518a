// Package bootstrap runs the startup-time migration sequence and hands
// control to the service process once the database is known good.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/example/petcare-bootstrap/internal/config"
	"github.com/example/petcare-bootstrap/internal/logging"
	"github.com/example/petcare-bootstrap/internal/migration"
)

// Options configure a Bootstrapper. DB, Dialect, Manager and Launcher are
// required; everything else has a usable zero-value default.
type Options struct {
	DB      *sql.DB
	Dialect migration.Dialect
	Manager *migration.Manager

	Launcher Launcher
	Launch   LaunchSpec

	// BaselinePolicy is config.BaselineStamp or config.BaselineMigrate.
	// Empty defaults to stamp, matching the behavior the deployment scripts
	// always had.
	BaselinePolicy string

	// VerifySchema enables the schema contract check after migration.
	VerifySchema bool
	Contract     []ColumnRequirement

	// LockTimeout bounds the wait for the migration lock. Zero means 30s.
	LockTimeout time.Duration

	// ConnectRetries bounds preflight ping retries. Zero means no retries.
	ConnectRetries int

	Logger *slog.Logger
}

// Bootstrapper executes the migration bootstrap state machine exactly once
// per process start.
type Bootstrapper struct {
	opts   Options
	logger *slog.Logger
	state  atomic.Int64
}

// New validates opts and builds a Bootstrapper.
func New(opts Options) (*Bootstrapper, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("bootstrap: DB is required")
	}
	if opts.Dialect == nil {
		return nil, fmt.Errorf("bootstrap: Dialect is required")
	}
	if opts.Manager == nil {
		return nil, fmt.Errorf("bootstrap: Manager is required")
	}
	if opts.Launcher == nil {
		return nil, fmt.Errorf("bootstrap: Launcher is required")
	}
	switch opts.BaselinePolicy {
	case "":
		opts.BaselinePolicy = config.BaselineStamp
	case config.BaselineStamp, config.BaselineMigrate:
	default:
		return nil, fmt.Errorf("bootstrap: unknown baseline policy %q", opts.BaselinePolicy)
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Bootstrapper{opts: opts, logger: opts.Logger}, nil
}

// State returns the phase the bootstrapper is currently in.
func (b *Bootstrapper) State() State {
	return State(b.state.Load())
}

func (b *Bootstrapper) enter(logger *slog.Logger, s State) {
	b.state.Store(int64(s))
	logger.Info("entering state", "state", s.String())
}

// Run executes the bootstrap sequence. A nil return means the launcher was
// invoked; with a process-replacing launcher Run never actually returns on
// success. Any non-nil error is fatal and the service was never started.
func (b *Bootstrapper) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := b.logger.With("run_id", runID)
	ctx = logging.ContextWithLogger(ctx, logger)

	// Preflight: the database must be reachable before anything mutates.
	b.enter(logger, StateCheckingTooling)
	if err := b.preflight(ctx); err != nil {
		return fmt.Errorf("database preflight failed: %w", err)
	}

	// Mutual exclusion across replicas starting at the same time.
	unlock, err := b.acquireLock(ctx, runID)
	if err != nil {
		return err
	}
	locked := true
	defer func() {
		if locked {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				logger.Warn("failed to release migration lock", "error", err)
			}
		}
	}()

	b.enter(logger, StateDetecting)
	present, err := b.opts.Manager.MarkerPresent(ctx)
	if err != nil {
		return fmt.Errorf("detect migration state: %w", err)
	}

	if !present {
		b.enter(logger, StateBaselining)
		if err := b.baseline(ctx, logger); err != nil {
			return err
		}
	} else {
		b.enter(logger, StateUpgrading)
		if _, err := b.opts.Manager.Apply(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	if b.opts.VerifySchema {
		b.enter(logger, StateVerifying)
		contract := b.opts.Contract
		if contract == nil {
			contract = DefaultContract()
		}
		if err := VerifySchema(ctx, b.opts.DB, b.opts.Dialect, contract); err != nil {
			return err
		}
		logger.Info("schema contract verified", "columns", len(contract))
	}

	// Diagnostics are best-effort and never block handoff.
	b.enter(logger, StateReporting)
	b.report(ctx, logger)

	b.enter(logger, StateStartingService)
	locked = false
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := unlock(releaseCtx); err != nil {
		logger.Warn("failed to release migration lock", "error", err)
	}
	cancel()

	logger.Info("handing off to service",
		"command", b.opts.Launch.Argv(),
		"bind_addr", b.opts.Launch.BindAddr,
		"workers", b.opts.Launch.Workers)
	if err := b.opts.Launcher.Launch(ctx, b.opts.Launch); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	return nil
}

// preflight pings the database inside a bounded exponential backoff loop.
func (b *Bootstrapper) preflight(ctx context.Context) error {
	ping := func() error {
		return b.opts.DB.PingContext(ctx)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(b.opts.ConnectRetries)),
		ctx)
	return backoff.Retry(ping, policy)
}

func (b *Bootstrapper) acquireLock(ctx context.Context, holder string) (migration.UnlockFunc, error) {
	lockCtx, cancel := context.WithTimeout(ctx, b.opts.LockTimeout)
	defer cancel()

	unlock, err := b.opts.Dialect.AcquireLock(lockCtx, b.opts.DB, holder)
	if err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	return unlock, nil
}

// baseline handles a database with no Migration State marker, per the
// configured policy.
func (b *Bootstrapper) baseline(ctx context.Context, logger *slog.Logger) error {
	switch b.opts.BaselinePolicy {
	case config.BaselineMigrate:
		logger.Info("no migration marker found, replaying full history")
		if _, err := b.opts.Manager.Apply(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	default:
		logger.Info("no migration marker found, stamping to head revision")
		if _, err := b.opts.Manager.Stamp(ctx); err != nil {
			return fmt.Errorf("stamp database: %w", err)
		}
	}
	return nil
}

// report logs the current revision and the full history for operator
// visibility. Failures are logged and swallowed.
func (b *Bootstrapper) report(ctx context.Context, logger *slog.Logger) {
	status, err := b.opts.Manager.Status(ctx)
	if err != nil {
		logger.Warn("could not report migration status", "error", err)
		return
	}
	logger.Info("migration status",
		"current_version", status.CurrentVersion,
		"pending", status.PendingCount)

	history, err := b.opts.Manager.History(ctx)
	if err != nil {
		logger.Warn("could not report migration history", "error", err)
		return
	}
	for _, applied := range history {
		logger.Info("migration history entry",
			"version", applied.Version,
			"applied_at", applied.AppliedAt,
			"execution_time", applied.ExecutionTime)
	}
}
