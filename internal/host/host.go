// Package host defines the narrow capabilities actionbar consumes from its
// environment: terminals, a command system, a status bar and the editor and
// workspace state used to build interpolation variables.
package host

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for host operations.
var (
	ErrTerminalNotFound = errors.New("terminal not found")
	ErrCommandNotFound  = errors.New("command not found")
)

// Shell identifies the command language spoken by a terminal.
type Shell string

// Supported shells.
const (
	ShellPosix      Shell = "posix"
	ShellPowerShell Shell = "powershell"
	ShellCmd        Shell = "cmd"
)

// ClearCommand returns the clear-screen instruction for the shell.
func (s Shell) ClearCommand() string {
	switch s {
	case ShellPowerShell, ShellCmd:
		return "cls"
	default:
		return "clear"
	}
}

// Terminal identifies a terminal session owned by the host.
// Two handles refer to the same terminal when their IDs are equal.
type Terminal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TerminalOptions configures terminal creation.
type TerminalOptions struct {
	Name string   // Display name, unique per host
	Cwd  string   // Working directory (optional)
	Env  []string // Additional environment (KEY=VALUE)
}

// ExecutionEnd is emitted when a terminal observes a completed command line
// that carries a completion sentinel.
type ExecutionEnd struct {
	Terminal Terminal `json:"terminal"`
	Line     string   `json:"line"`
	ExitCode int      `json:"exitCode"`
}

// Terminals manages terminal sessions.
type Terminals interface {
	// Create starts a new terminal.
	Create(ctx context.Context, opts *TerminalOptions) (Terminal, error)

	// List returns every live terminal known to the host, in creation order.
	List(ctx context.Context) ([]Terminal, error)

	// Exited reports whether the terminal's process has ended.
	Exited(ctx context.Context, t Terminal) (bool, error)

	// SendText types text followed by a newline into the terminal.
	SendText(ctx context.Context, t Terminal, text string) error

	// Show reveals the terminal. When focus is true it also takes input focus.
	Show(ctx context.Context, t Terminal, focus bool) error

	// Dispose terminates the terminal.
	Dispose(ctx context.Context, t Terminal) error

	// OnDidEndExecution streams completed executions until ctx is done.
	// Cancelling ctx unsubscribes.
	OnDidEndExecution(ctx context.Context) (<-chan ExecutionEnd, error)

	// Shell reports the command language of terminals created by this host.
	Shell() Shell
}

// NativeCommands runs commands understood by the host itself rather than by
// a shell (tmux commands for the tmux host, programs for the shell host).
type NativeCommands interface {
	Execute(ctx context.Context, command string, args ...string) error
}

// Button is one status bar entry.
type Button struct {
	Command string // Identifier invoked when the button is pressed
	Text    string
	Tooltip string
	Color   string
}

// UI is the user-facing surface: buttons and transient notices.
type UI interface {
	CreateButton(b Button) Disposable
	ShowError(message string)
	SetStatusMessage(message string, timeout time.Duration)
}

// Folder is a workspace root.
type Folder struct {
	Name string
	Path string
}

// EditorState is the state of the active editor. Line and Column are
// zero-based.
type EditorState struct {
	File         string
	Line         int
	Column       int
	SelectedText string
}

// Workspace exposes workspace folders and the active editor.
type Workspace interface {
	Folders() []Folder
	// FolderOf returns the workspace folder containing path.
	FolderOf(path string) (Folder, bool)
	// ActiveEditor returns nil when no editor is active.
	ActiveEditor() *EditorState
}

// ConfigChanges notifies about configuration changes.
type ConfigChanges interface {
	OnDidChangeConfiguration(fn func()) Disposable
}
