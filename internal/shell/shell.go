// Package shell implements the terminal host with in-process POSIX shell
// interpreters. Each terminal is an interp.Runner fed command lines through a
// queue; output from every terminal goes to one shared writer.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/jmgilman/actionbar/internal/events"
	"github.com/jmgilman/actionbar/internal/exec"
	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/logging"
	"github.com/jmgilman/actionbar/internal/sentinel"
	"github.com/jmgilman/actionbar/internal/slogger"
)

// ErrTerminalExists is returned when creating a terminal whose name is taken
// by a live terminal.
var ErrTerminalExists = errors.New("terminal already exists")

// clearScreen is written for the clear and cls builtins.
const clearScreen = "\033[H\033[2J"

// Options configures the shell host.
type Options struct {
	// Executor runs native commands.
	Executor exec.Executor

	// Output receives every terminal's stdout and stderr. Defaults to
	// os.Stdout.
	Output io.Writer

	// LogDir, if set, receives one <terminal name>.log per terminal.
	LogDir string

	// Environ is the base environment of new terminals. Defaults to
	// os.Environ().
	Environ []string
}

// Host implements host.Terminals and host.NativeCommands.
type Host struct {
	exec    exec.Executor
	out     io.Writer
	logDir  string
	environ []string
	bus     *events.Bus[host.ExecutionEnd]

	mu     sync.Mutex
	terms  []*terminal
	nextID int
	closed bool
}

// New creates a shell host.
func New(opts Options) *Host {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	return &Host{
		exec:    opts.Executor,
		out:     &lockedWriter{w: out},
		logDir:  opts.LogDir,
		environ: environ,
		bus:     events.NewBus[host.ExecutionEnd]("shell.execution-end"),
	}
}

// Shell reports the command language of the interpreters.
func (h *Host) Shell() host.Shell {
	return host.ShellPosix
}

// Create starts a new interpreter.
func (h *Host) Create(ctx context.Context, opts *host.TerminalOptions) (host.Terminal, error) {
	if opts == nil || opts.Name == "" {
		return host.Terminal{}, errors.New("terminal name is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return host.Terminal{}, events.ErrClosed
	}
	for _, t := range h.terms {
		if t.handle.Name == opts.Name && t.alive() {
			return host.Terminal{}, fmt.Errorf("%w: %s", ErrTerminalExists, opts.Name)
		}
	}

	h.nextID++
	handle := host.Terminal{ID: "sh" + strconv.Itoa(h.nextID), Name: opts.Name}

	t, err := h.newTerminal(ctx, handle, opts)
	if err != nil {
		return host.Terminal{}, err
	}
	h.terms = append(h.terms, t)
	go t.loop()

	slogger.L(ctx).Debug("created shell terminal", "id", handle.ID, "name", handle.Name)
	return handle, nil
}

func (h *Host) newTerminal(ctx context.Context, handle host.Terminal, opts *host.TerminalOptions) (*terminal, error) {
	scanner := sentinel.NewScanner(func(m sentinel.Match) {
		end := host.ExecutionEnd{Terminal: handle, Line: m.Line, ExitCode: m.ExitCode}
		if err := h.bus.Publish(end); err != nil && !errors.Is(err, events.ErrClosed) {
			slogger.L(ctx).Warn("publish execution end", "terminal", handle.Name, "error", err)
		}
	})
	w := io.MultiWriter(h.out, scanner)

	var logFile io.Closer
	if h.logDir != "" {
		tee, err := logging.NewDir(h.logDir).Tee(w, handle.Name)
		if err != nil {
			return nil, err
		}
		logFile = tee
		w = tee
	}

	dir := opts.Cwd
	if dir == "" {
		dir, _ = os.Getwd()
	}
	env := append(append([]string{}, h.environ...), opts.Env...)

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, w, w),
		interp.ExecHandlers(clearHandler),
	)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("create interpreter: %w", err)
	}

	runCtx, cancel := context.WithCancel(slogger.WithLogger(context.Background(), slogger.L(ctx)))
	return &terminal{
		handle: handle,
		runner: runner,
		stderr: w,
		log:    logFile,
		ctx:    runCtx,
		cancel: cancel,
		queue:  make(chan string, 16),
		done:   make(chan struct{}),
	}, nil
}

// clearHandler implements clear and cls without spawning a process.
func clearHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if len(args) > 0 && (args[0] == "clear" || args[0] == "cls") {
			_, err := io.WriteString(interp.HandlerCtx(ctx).Stdout, clearScreen)
			return err
		}
		return next(ctx, args)
	}
}

func (h *Host) find(id string) (*terminal, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.terms {
		if t.handle.ID == id {
			return t, true
		}
	}
	return nil, false
}

// List returns live terminals in creation order.
func (h *Host) List(_ context.Context) ([]host.Terminal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	terms := make([]host.Terminal, 0, len(h.terms))
	for _, t := range h.terms {
		if t.alive() {
			terms = append(terms, t.handle)
		}
	}
	return terms, nil
}

// Exited reports whether the interpreter ran exit or the terminal was
// disposed. Unknown terminals count as exited.
func (h *Host) Exited(_ context.Context, target host.Terminal) (bool, error) {
	t, ok := h.find(target.ID)
	if !ok {
		return true, nil
	}
	return !t.alive(), nil
}

// SendText queues a command line for the terminal.
func (h *Host) SendText(_ context.Context, target host.Terminal, text string) error {
	t, ok := h.find(target.ID)
	if !ok || !t.alive() {
		return fmt.Errorf("%w: %s", host.ErrTerminalNotFound, target.Name)
	}
	return t.send(text)
}

// Show is a no-op: every terminal writes to the shared output.
func (h *Host) Show(_ context.Context, target host.Terminal, _ bool) error {
	if _, ok := h.find(target.ID); !ok {
		return fmt.Errorf("%w: %s", host.ErrTerminalNotFound, target.Name)
	}
	return nil
}

// Dispose stops the interpreter and forgets the terminal.
func (h *Host) Dispose(ctx context.Context, target host.Terminal) error {
	h.mu.Lock()
	idx := -1
	for i, t := range h.terms {
		if t.handle.ID == target.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", host.ErrTerminalNotFound, target.Name)
	}
	t := h.terms[idx]
	h.terms = append(h.terms[:idx], h.terms[idx+1:]...)
	h.mu.Unlock()

	t.stop()
	slogger.L(ctx).Debug("disposed shell terminal", "id", target.ID, "name", target.Name)
	return nil
}

// OnDidEndExecution streams completion markers written by any terminal.
func (h *Host) OnDidEndExecution(ctx context.Context) (<-chan host.ExecutionEnd, error) {
	return h.bus.Subscribe(ctx)
}

// Execute runs a program with output streamed to the shared writer.
func (h *Host) Execute(ctx context.Context, command string, args ...string) error {
	_, err := h.exec.Run(ctx, &exec.RunOptions{
		Name:   command,
		Args:   args,
		Stdout: h.out,
		Stderr: h.out,
	})
	if err != nil {
		return fmt.Errorf("run %s: %w", command, err)
	}
	return nil
}

// Drain blocks until every queued command line has run or ctx is done.
func (h *Host) Drain(ctx context.Context) error {
	h.mu.Lock()
	terms := append([]*terminal(nil), h.terms...)
	h.mu.Unlock()

	for _, t := range terms {
		idle := make(chan struct{})
		go func() {
			t.pending.Wait()
			close(idle)
		}()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops every terminal and closes event subscriptions.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	terms := h.terms
	h.terms = nil
	h.mu.Unlock()

	for _, t := range terms {
		t.stop()
	}
	return h.bus.Close()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// parse reads one command line.
func parse(text, name string) (*syntax.File, error) {
	return syntax.NewParser().Parse(strings.NewReader(text), name)
}
