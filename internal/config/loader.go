// Package config loads environment driven configuration for the bootstrap
// process.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Baseline policies for a database that has never been migrated.
const (
	// BaselineStamp marks the database as already at head without executing
	// migration bodies. Correct when the existing schema already matches head.
	BaselineStamp = "stamp"

	// BaselineMigrate replays the full migration history. Correct for a
	// genuinely empty database.
	BaselineMigrate = "migrate"
)

// Config captures environment driven configuration values for the bootstrap
// process and the service handoff.
type Config struct {
	// DatabaseURL is the connection URL of the target database. Required.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationsDir overrides the embedded migration set with a directory on
	// disk. Empty means use the bundled set.
	MigrationsDir string `env:"BOOTSTRAP_MIGRATIONS_DIR"`

	// BaselinePolicy selects how a never-migrated database is brought under
	// version tracking.
	BaselinePolicy string `env:"BOOTSTRAP_BASELINE_POLICY" envDefault:"stamp"`

	// VerifySchema toggles the post-migration schema contract check.
	VerifySchema bool `env:"BOOTSTRAP_VERIFY_SCHEMA" envDefault:"true"`

	// LockTimeout bounds how long to wait for the migration lock.
	LockTimeout time.Duration `env:"BOOTSTRAP_LOCK_TIMEOUT" envDefault:"30s"`

	// ConnectRetries bounds the retry attempts of the initial connectivity
	// check.
	ConnectRetries int `env:"BOOTSTRAP_CONNECT_RETRIES" envDefault:"5"`

	// ServiceCommand is the service invocation handed control after a
	// successful bootstrap. Split on whitespace.
	ServiceCommand string `env:"SERVICE_COMMAND" envDefault:"petcare-api"`

	// BindAddr is passed to the service as its listen address.
	BindAddr string `env:"SERVICE_BIND_ADDR" envDefault:"0.0.0.0:8000"`

	// Workers is the worker concurrency passed to the service.
	Workers int `env:"SERVICE_WORKERS" envDefault:"4"`
}

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.BaselinePolicy {
	case BaselineStamp, BaselineMigrate:
	default:
		return fmt.Errorf("invalid BOOTSTRAP_BASELINE_POLICY %q: must be %q or %q",
			c.BaselinePolicy, BaselineStamp, BaselineMigrate)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("SERVICE_WORKERS must be positive, got %d", c.Workers)
	}
	if c.ConnectRetries < 0 {
		return fmt.Errorf("BOOTSTRAP_CONNECT_RETRIES cannot be negative, got %d", c.ConnectRetries)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("BOOTSTRAP_LOCK_TIMEOUT must be positive, got %s", c.LockTimeout)
	}
	if len(c.ServiceArgv()) == 0 {
		return fmt.Errorf("SERVICE_COMMAND cannot be empty")
	}
	return nil
}

// ServiceArgv returns the service command split into argv form.
func (c Config) ServiceArgv() []string {
	return strings.Fields(c.ServiceCommand)
}
