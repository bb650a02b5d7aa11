package multiplexer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/jmgilman/actionbar/internal/events"
	"github.com/jmgilman/actionbar/internal/exec"
	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/logging"
	"github.com/jmgilman/actionbar/internal/slogger"
)

// Tmux implements host.Terminals and host.NativeCommands using the tmux CLI.
type Tmux struct {
	exec     exec.Executor
	shell    host.Shell
	logDir   string
	interval time.Duration
	history  int
	client   string

	bus *events.Bus[host.ExecutionEnd]

	mu      sync.Mutex
	seen    map[string]map[string]bool
	polling bool
	stop    chan struct{}
	stopped chan struct{}
}

// NewTmux creates a tmux host.
func NewTmux(opts Options) *Tmux {
	t := &Tmux{
		exec:     opts.Executor,
		shell:    opts.Shell,
		logDir:   opts.LogDir,
		interval: opts.PollInterval,
		history:  opts.History,
		client:   opts.Client,
		bus:      events.NewBus[host.ExecutionEnd]("tmux.execution-end"),
		seen:     make(map[string]map[string]bool),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if t.shell == "" {
		t.shell = host.ShellPosix
	}
	if t.interval <= 0 {
		t.interval = DefaultPollInterval
	}
	if t.history <= 0 {
		t.history = DefaultHistory
	}
	return t
}

func (t *Tmux) run(ctx context.Context, args ...string) (*exec.Result, error) {
	return t.exec.Run(ctx, &exec.RunOptions{
		Name: "tmux",
		Args: args,
	})
}

// Shell reports the command language of the sessions' shell.
func (t *Tmux) Shell() host.Shell {
	return t.shell
}

// Create starts a detached session. Names must be unique on the server.
func (t *Tmux) Create(ctx context.Context, opts *host.TerminalOptions) (host.Terminal, error) {
	if opts == nil || opts.Name == "" {
		return host.Terminal{}, fmt.Errorf("%w: session name is required", ErrCreateFailed)
	}
	name := SanitizeName(opts.Name)

	// -P -F prints the new session's ID so we never have to look it up by name.
	args := []string{"new-session", "-d", "-P", "-F", "#{session_id}", "-s", name}
	if opts.Cwd != "" {
		args = append(args, "-c", opts.Cwd)
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}

	result, err := t.run(ctx, args...)
	if err != nil {
		if strings.Contains(result.StderrText(), "duplicate session") {
			return host.Terminal{}, fmt.Errorf("%w: %s", ErrSessionExists, name)
		}
		return host.Terminal{}, fmt.Errorf("%w: %v: %s", ErrCreateFailed, err, result.StderrText())
	}

	id := result.StdoutText()
	if id == "" {
		return host.Terminal{}, fmt.Errorf("%w: tmux did not report a session id", ErrCreateFailed)
	}
	created := host.Terminal{ID: id, Name: name}

	if t.logDir != "" {
		t.captureLog(ctx, created)
	}

	slogger.L(ctx).Debug("created tmux session", "id", id, "name", name)
	return created, nil
}

// captureLog pipes pane output to the session's log. Failure is logged
// only, the session itself was created.
func (t *Tmux) captureLog(ctx context.Context, term host.Terminal) {
	dir := logging.NewDir(t.logDir)
	if err := dir.Ensure(); err != nil {
		slogger.L(ctx).Warn("capture session log", "session", term.Name, "error", err)
		return
	}
	if _, err := t.run(ctx, "pipe-pane", "-t", term.ID, "cat >> "+shellEscape(dir.Path(term.Name))); err != nil {
		slogger.L(ctx).Warn("capture session log", "session", term.Name, "error", err)
	}
}

// List returns live sessions ordered by creation.
func (t *Tmux) List(ctx context.Context) ([]host.Terminal, error) {
	result, err := t.run(ctx, "list-sessions", "-F", listFormat)
	if err != nil {
		// Only treat known "no sessions" messages as empty list.
		if isMissing(result.StderrText()) {
			return []host.Terminal{}, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return parseSessions(result.StdoutText()), nil
}

type listedSession struct {
	terminal host.Terminal
	created  int64
	seq      int
}

func parseSessions(output string) []host.Terminal {
	if output == "" {
		return []host.Terminal{}
	}

	var listed []listedSession
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, sessionField, 3)
		if len(fields) < 2 {
			continue
		}
		s := listedSession{terminal: host.Terminal{ID: fields[0], Name: fields[1]}}
		if len(fields) == 3 {
			s.created, _ = strconv.ParseInt(fields[2], 10, 64)
		}
		s.seq, _ = strconv.Atoi(strings.TrimPrefix(fields[0], "$"))
		listed = append(listed, s)
	}

	// tmux lists sessions by name; creation order is what callers expect.
	sort.SliceStable(listed, func(i, j int) bool {
		if listed[i].created != listed[j].created {
			return listed[i].created < listed[j].created
		}
		return listed[i].seq < listed[j].seq
	})

	terminals := make([]host.Terminal, 0, len(listed))
	for _, s := range listed {
		terminals = append(terminals, s.terminal)
	}
	return terminals
}

// Exited reports whether the session is gone. A tmux session ends when its
// shell exits, so a missing session is an exited terminal.
func (t *Tmux) Exited(ctx context.Context, term host.Terminal) (bool, error) {
	result, err := t.run(ctx, "has-session", "-t", term.ID)
	if err == nil {
		return false, nil
	}
	if isMissing(result.StderrText()) || exec.ExitCode(err) == 1 {
		return true, nil
	}
	return false, fmt.Errorf("check session %s: %w", term.Name, err)
}

// SendText types text literally into the session and presses Enter.
func (t *Tmux) SendText(ctx context.Context, term host.Terminal, text string) error {
	if result, err := t.run(ctx, "send-keys", "-t", term.ID, "-l", text); err != nil {
		return t.targetError("send keys", term, result, err)
	}
	if result, err := t.run(ctx, "send-keys", "-t", term.ID, "Enter"); err != nil {
		return t.targetError("send keys", term, result, err)
	}
	return nil
}

// Show switches the calling tmux client to the session when focus is
// requested. Outside tmux it only logs how to attach.
func (t *Tmux) Show(ctx context.Context, term host.Terminal, focus bool) error {
	if !focus {
		return nil
	}
	if t.client == "" {
		slogger.L(ctx).Info("terminal ready", "session", term.Name, "attach", "actionbar attach "+term.Name)
		return nil
	}
	if result, err := t.run(ctx, "switch-client", "-t", term.ID); err != nil {
		return t.targetError("switch client", term, result, err)
	}
	return nil
}

// Dispose kills the session.
func (t *Tmux) Dispose(ctx context.Context, term host.Terminal) error {
	if result, err := t.run(ctx, "kill-session", "-t", term.ID); err != nil {
		return t.targetError("kill session", term, result, err)
	}
	t.mu.Lock()
	delete(t.seen, term.ID)
	t.mu.Unlock()
	slogger.L(ctx).Debug("killed tmux session", "id", term.ID, "name", term.Name)
	return nil
}

func (t *Tmux) targetError(op string, term host.Terminal, result *exec.Result, err error) error {
	if isMissing(result.StderrText()) {
		return fmt.Errorf("%s %s: %w", op, term.Name, ErrSessionNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, term.Name, err)
}

// Execute runs a tmux command, e.g. Execute(ctx, "display-message", "hi").
func (t *Tmux) Execute(ctx context.Context, command string, args ...string) error {
	result, err := t.run(ctx, append([]string{command}, args...)...)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrCommandFailed, command, result.StderrText())
	}
	return nil
}

// Find returns the live session with the given name or ID.
func (t *Tmux) Find(ctx context.Context, nameOrID string) (host.Terminal, error) {
	terms, err := t.List(ctx)
	if err != nil {
		return host.Terminal{}, err
	}
	for _, term := range terms {
		if term.ID == nameOrID || term.Name == nameOrID || term.Name == SanitizeName(nameOrID) {
			return term, nil
		}
	}
	return host.Terminal{}, fmt.Errorf("%w: %s", ErrSessionNotFound, nameOrID)
}

// Attach attaches the current terminal to the session. It blocks until the
// user detaches.
func (t *Tmux) Attach(ctx context.Context, target host.Terminal) error {
	args := []string{"attach-session", "-t", target.ID}

	stdinFd := int(os.Stdin.Fd())

	// Capture stderr while also streaming to os.Stderr for user visibility
	var stderrBuf bytes.Buffer
	stderrWriter := io.MultiWriter(os.Stderr, &stderrBuf)

	if term.IsTerminal(stdinFd) {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			return fmt.Errorf("set terminal raw mode: %w", err)
		}
		defer func() { _ = term.Restore(stdinFd, oldState) }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGWINCH)
		defer signal.Stop(sigCh)
	}

	_, err := t.exec.Run(ctx, &exec.RunOptions{
		Name:   "tmux",
		Args:   args,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: stderrWriter,
	})
	if err != nil {
		if isMissing(stderrBuf.String()) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%w: %v", ErrAttachFailed, err)
	}
	return nil
}
