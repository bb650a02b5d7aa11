// Package logging stores and reads the output logs of terminals. Each
// terminal appends to <dir>/<terminal name>.log.
package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const logExt = ".log"

// ErrNoLog is returned when a terminal has no log file.
var ErrNoLog = errors.New("no log for terminal")

// Dir is a directory of terminal logs.
type Dir struct {
	base string
}

// NewDir creates a Dir rooted at base. The directory is created lazily.
func NewDir(base string) *Dir {
	return &Dir{base: base}
}

// Base returns the log directory.
func (d *Dir) Base() string {
	return d.base
}

// Path returns the log path for a terminal name.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.base, name+logExt)
}

// Ensure creates the log directory if it does not exist.
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.base, 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	return nil
}

// Append opens the terminal's log for appending, creating it if needed.
func (d *Dir) Append(name string) (*os.File, error) {
	if err := d.Ensure(); err != nil {
		return nil, err
	}
	//nolint:gosec // G304: path is built from the log directory and a sanitized terminal name
	f, err := os.OpenFile(d.Path(name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open terminal log: %w", err)
	}
	return f, nil
}

// Exists reports whether a log file exists for the terminal.
func (d *Dir) Exists(name string) bool {
	_, err := os.Stat(d.Path(name))
	return err == nil
}

// Remove deletes a terminal's log if it exists.
func (d *Dir) Remove(name string) error {
	if err := os.Remove(d.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove terminal log: %w", err)
	}
	return nil
}

// List returns the names of terminals that have logs, sorted.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), logExt); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
