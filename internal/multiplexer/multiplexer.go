// Package multiplexer implements the terminal host on top of tmux. Every
// terminal is a detached tmux session addressed by its server-unique session
// ID, so a session recreated under the same name is a different terminal.
package multiplexer

import (
	"errors"
	"strings"
	"time"

	"github.com/jmgilman/actionbar/internal/exec"
	"github.com/jmgilman/actionbar/internal/host"
)

// Sentinel errors for multiplexer operations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrAttachFailed    = errors.New("failed to attach to session")
	ErrCreateFailed    = errors.New("failed to create session")
	ErrCommandFailed   = errors.New("tmux command failed")
)

// Defaults for Options.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultHistory      = 200
)

// Options configures the tmux host.
type Options struct {
	Executor exec.Executor

	// Shell is the command language of the sessions' default shell.
	Shell host.Shell

	// LogDir, if set, receives one <session name>.log per terminal via
	// pipe-pane.
	LogDir string

	// PollInterval is how often panes are scanned for completion markers.
	PollInterval time.Duration

	// History is the number of scrollback lines scanned per poll.
	History int

	// Client is the value of $TMUX for the calling process. Focusing a
	// terminal switches the client only when it is set.
	Client string
}

// sessionField separates fields in list-sessions output.
const sessionField = "\t"

const listFormat = "#{session_id}" + sessionField + "#{session_name}" + sessionField + "#{session_created}"

// SanitizeName replaces characters tmux does not accept in session names.
func SanitizeName(name string) string {
	return strings.NewReplacer(".", "_", ":", "_").Replace(name)
}

// isMissing reports whether tmux stderr says the target or server is gone.
func isMissing(stderr string) bool {
	return strings.Contains(stderr, "can't find session") ||
		strings.Contains(stderr, "no session") ||
		strings.Contains(stderr, "no server running") ||
		strings.Contains(stderr, "error connecting to")
}

// shellEscape wraps s in single quotes, escaping embedded single quotes.
func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
