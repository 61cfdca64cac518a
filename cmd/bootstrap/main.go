package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/petcare-bootstrap/internal/bootstrap"
	"github.com/example/petcare-bootstrap/internal/config"
	"github.com/example/petcare-bootstrap/internal/database"
	"github.com/example/petcare-bootstrap/internal/migration"
	"github.com/example/petcare-bootstrap/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, dialect, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	var source migration.Source = migration.NewFSSource(migrations.FS, ".")
	if cfg.MigrationsDir != "" {
		source = migration.NewDirSource(cfg.MigrationsDir)
	}

	executor := migration.NewSQLExecutor(db, dialect)
	manager := migration.NewManager(source, executor, logger)

	bootstrapper, err := bootstrap.New(bootstrap.Options{
		DB:       db,
		Dialect:  dialect,
		Manager:  manager,
		Launcher: bootstrap.ExecLauncher{},
		Launch: bootstrap.LaunchSpec{
			Command:  cfg.ServiceArgv(),
			BindAddr: cfg.BindAddr,
			Workers:  cfg.Workers,
		},
		BaselinePolicy: cfg.BaselinePolicy,
		VerifySchema:   cfg.VerifySchema,
		LockTimeout:    cfg.LockTimeout,
		ConnectRetries: cfg.ConnectRetries,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to build bootstrapper", "error", err)
		os.Exit(1)
	}

	if err := bootstrapper.Run(ctx); err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
}
