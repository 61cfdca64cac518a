package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// LaunchSpec describes the service invocation performed at handoff.
type LaunchSpec struct {
	// Command is the service argv prefix, e.g. ["petcare-api"].
	Command []string

	// BindAddr is appended as --bind ADDR.
	BindAddr string

	// Workers is appended as --workers N.
	Workers int
}

// Argv expands the spec into the full argument vector.
func (s LaunchSpec) Argv() []string {
	argv := append([]string(nil), s.Command...)
	if s.BindAddr != "" {
		argv = append(argv, "--bind", s.BindAddr)
	}
	if s.Workers > 0 {
		argv = append(argv, "--workers", strconv.Itoa(s.Workers))
	}
	return argv
}

// Launcher starts the service process once the bootstrap sequence succeeds.
type Launcher interface {
	// Launch hands control to the service. Implementations that replace the
	// process image only return on failure.
	Launch(ctx context.Context, spec LaunchSpec) error
}

// ExecLauncher replaces the current process image with the service, inheriting
// environment and file descriptors.
type ExecLauncher struct{}

func (ExecLauncher) Launch(_ context.Context, spec LaunchSpec) error {
	argv := spec.Argv()
	if len(argv) == 0 {
		return fmt.Errorf("launch: empty service command")
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("launch: locate %s: %w", argv[0], err)
	}
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("launch: exec %s: %w", path, err)
	}
	return nil
}
