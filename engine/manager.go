// Package engine manages the external playback engine process.
//
// The engine is an opaque binary: it is pointed at an instruction file
// and an emulation image, runs headless, and reports progress as text
// lines on stdout. Everything the supervisor knows about it flows
// through this package.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

// Config configures one engine invocation.
type Config struct {
	// EnginePath is the path to the playback engine binary.
	EnginePath string
	// InstructionPath is the path to the playback instruction file.
	InstructionPath string
	// ImagePath is the path to the emulation image the engine boots.
	ImagePath string
	// SettingsPath optionally points the engine at a settings file;
	// empty means the engine's own configuration applies.
	SettingsPath string
}

// Result is the exit state of a finished engine process.
type Result struct {
	// ExitCode is the process exit code. -1 when the process was
	// terminated by a signal, which is the expected ending for a
	// recording driven to its completion condition.
	ExitCode int
}

// Manager owns the engine process lifecycle: spawn, stream access,
// termination, reaping.
type Manager struct {
	config *Config
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

// NewManager creates a manager for one engine invocation.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Start spawns the engine in batch/headless mode pointed at the
// instruction file. Stdout carries the progress line stream; stderr is
// captured for diagnostics.
func (m *Manager) Start(ctx context.Context) error {
	args := []string{
		"-b",
		"--cout",
		"-i", m.config.InstructionPath,
		"-e", m.config.ImagePath,
	}
	if m.config.SettingsPath != "" {
		args = append(args, "-u", m.config.SettingsPath)
	}

	m.cmd = exec.CommandContext(ctx, m.config.EnginePath, args...)

	stdout, err := m.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	m.stdout = stdout

	stderr, err := m.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	m.stderr = stderr

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	return nil
}

// Stdout returns the engine's stdout reader for progress-line reading.
func (m *Manager) Stdout() io.Reader {
	return m.stdout
}

// Stderr returns the engine's stderr reader. The supervisor drains it
// concurrently with the stdout stream so the engine can never block on
// a full stderr pipe.
func (m *Manager) Stderr() io.Reader {
	return m.stderr
}

// Wait reaps the engine process and returns its exit state.
// Must be called after Start, and only once both output streams have
// been fully consumed: Wait closes the pipes.
func (m *Manager) Wait() (*Result, error) {
	if m.cmd == nil {
		return nil, errors.New("engine not started")
	}

	err := m.cmd.Wait()

	result := &Result{}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Exited() {
				result.ExitCode = status.ExitStatus()
			} else {
				// Signaled exit: the normal ending for an engine
				// terminated at the completion condition.
				result.ExitCode = -1
			}
		} else {
			return nil, fmt.Errorf("engine wait failed: %w", err)
		}
	} else {
		result.ExitCode = 0
	}

	return result, nil
}

// Terminate requests engine termination. The supervisor calls this
// exactly once, synchronously with detecting the completion condition.
func (m *Manager) Terminate() error {
	if m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Kill()
	}
	return nil
}
