// Package shell runs document commands in a bash process.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner executes a single command and returns its combined stdout/stderr.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
	HasValue(ctx context.Context, name string) bool
	Setenv(ctx context.Context, name, value string) error
	Close() error
}

// TimeoutError is returned when a command exceeds its deadline.
type TimeoutError struct {
	Command  string        // Command that timed out
	Duration time.Duration // Configured timeout, zero when the deadline came from the caller
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	if e.Duration > 0 {
		return fmt.Sprintf("command %q: timeout after %v", e.Command, e.Duration)
	}
	return fmt.Sprintf("command %q: deadline exceeded", e.Command)
}

// Unwrap returns context.DeadlineExceeded to support error wrapping.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// OneShotRunner executes every command in a fresh `sh -c`. State such as
// the working directory or exported variables does not carry over between
// commands.
type OneShotRunner struct {
	WorkDir string   // Working directory for commands (empty = current dir)
	Env     []string // Extra KEY=VALUE pairs appended to the process environment
	Timeout time.Duration
}

// NewOneShotRunner creates a Runner that starts a new shell per command.
func NewOneShotRunner(workDir string, env []string, timeout time.Duration) *OneShotRunner {
	return &OneShotRunner{WorkDir: workDir, Env: env, Timeout: timeout}
}

// Run executes a command via sh -c and returns combined stdout/stderr.
func (r *OneShotRunner) Run(ctx context.Context, command string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	cmd.WaitDelay = time.Second

	output, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return string(output), &TimeoutError{Command: command, Duration: r.Timeout}
	}
	if ctx.Err() != nil {
		return string(output), ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Non-zero exit is graded by output, not reported as a failure.
		err = nil
	}
	return string(output), err
}

// HasValue reports whether name is set to a non-empty value in the
// environment commands would see.
func (r *OneShotRunner) HasValue(_ context.Context, name string) bool {
	for i := len(r.Env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(r.Env[i], "="); ok && k == name {
			return v != ""
		}
	}
	return os.Getenv(name) != ""
}

// Setenv adds name=value to the environment of later commands.
func (r *OneShotRunner) Setenv(_ context.Context, name, value string) error {
	r.Env = append(r.Env, name+"="+value)
	return nil
}

// Close is a no-op; every command already ran to completion.
func (r *OneShotRunner) Close() error {
	return nil
}
