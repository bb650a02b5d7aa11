// Package exec runs external programs (tmux, git, host commands) behind an
// interface so callers can be tested with a mock.
package exec

import (
	"context"
	"errors"
	"io"
	osexec "os/exec"
	"strings"
)

// Result holds the output from a completed command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// StdoutText returns captured stdout with surrounding whitespace removed.
func (r *Result) StdoutText() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(string(r.Stdout))
}

// StderrText returns captured stderr with surrounding whitespace removed.
func (r *Result) StderrText() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(string(r.Stderr))
}

// RunOptions configures command execution.
type RunOptions struct {
	Name   string    // Command name or path (required)
	Args   []string  // Command arguments
	Dir    string    // Working directory (empty = current)
	Env    []string  // Additional environment variables (KEY=VALUE format)
	Stdin  io.Reader // Stdin source (nil = no input)
	Stdout io.Writer // If set, streams stdout here instead of capturing
	Stderr io.Writer // If set, streams stderr here instead of capturing
}

// Executor runs external commands.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/executor.go . Executor
type Executor interface {
	// Run executes a command and returns its output.
	// If Stdout/Stderr writers are set in opts, output streams there and
	// Result.Stdout/Stderr will be nil.
	// Returns os/exec.ExitError on non-zero exit (use errors.As or ExitCode).
	Run(ctx context.Context, opts *RunOptions) (*Result, error)

	// LookPath searches for an executable in PATH.
	LookPath(name string) (string, error)
}

// ExitCode extracts the process exit code from an error returned by Run.
// A nil error is exit code 0; errors that did not come from a process
// exit report -1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
