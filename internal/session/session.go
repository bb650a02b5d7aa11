// Package session decides which terminal runs a command: a terminal owned by
// the command (reused, cleared or recreated), or a shared one. It also closes
// terminals whose command asked to close on success.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jmgilman/actionbar/internal/events"
	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/names"
	"github.com/jmgilman/actionbar/internal/sentinel"
	"github.com/jmgilman/actionbar/internal/slogger"
)

// ErrEmptyCommand is returned when a request has no command line.
var ErrEmptyCommand = errors.New("command line is empty")

// State describes a command's terminal as seen by the manager.
type State int

// Terminal states.
const (
	NoTerminal State = iota
	ManagedAlive
	ManagedExited
	Unmanaged
)

func (s State) String() string {
	switch s {
	case ManagedAlive:
		return "alive"
	case ManagedExited:
		return "exited"
	case Unmanaged:
		return "unmanaged"
	default:
		return "none"
	}
}

// Request describes one command execution.
type Request struct {
	ID          string   // Command identifier, keys the owned terminal
	Cwd         string   // Working directory for a new terminal
	Env         []string // Extra environment for a new terminal
	CommandLine string   // Fully interpolated command

	OpenOwnTerminal bool
	SingleInstance  bool
	Focus           bool
	CloseOnSuccess  bool
}

// Launch reports what the manager did for a request.
type Launch struct {
	Terminal host.Terminal
	Created  bool   // A new terminal was created
	Reused   bool   // An existing owned terminal was cleared and reused
	Token    string // Completion token, set when CloseOnSuccess
	Text     string // Text sent to the terminal
}

// Manager owns the identifier to terminal mapping.
type Manager struct {
	host host.Terminals

	// mu is held for the whole policy decision so that concurrent launches
	// of one command never create two terminals.
	mu      sync.Mutex
	tracked map[string]host.Terminal

	watchCtx    context.Context
	stopWatches context.CancelFunc
	pending     sync.WaitGroup
}

// NewManager creates a manager for the given terminal host.
func NewManager(h host.Terminals) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		host:        h,
		tracked:     make(map[string]host.Terminal),
		watchCtx:    ctx,
		stopWatches: cancel,
	}
}

// Launch picks or creates a terminal for the request and sends the command
// line to it.
func (m *Manager) Launch(ctx context.Context, req *Request) (*Launch, error) {
	if req == nil || req.CommandLine == "" {
		return nil, ErrEmptyCommand
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		launch *Launch
		err    error
	)
	if req.OpenOwnTerminal {
		launch, err = m.ownTerminal(ctx, req)
	} else {
		launch, err = m.sharedTerminal(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	launch.Text = req.CommandLine
	var waiter *events.Waiter[host.ExecutionEnd]
	if req.CloseOnSuccess {
		launch.Token = sentinel.NewToken()
		launch.Text += sentinel.Suffix(m.host.Shell(), launch.Token)

		// Subscribe before sending so a fast command cannot finish unseen.
		waiter, err = events.Watch(m.watchContext(ctx), m.host.OnDidEndExecution, matchEnd(launch.Terminal, launch.Token))
		if err != nil {
			return nil, fmt.Errorf("watch for completion: %w", err)
		}
	}

	if err := m.host.Show(ctx, launch.Terminal, req.Focus); err != nil {
		slogger.L(ctx).Warn("show terminal", "terminal", launch.Terminal.Name, "error", err)
	}
	if err := m.host.SendText(ctx, launch.Terminal, launch.Text); err != nil {
		if waiter != nil {
			waiter.Stop()
		}
		return nil, fmt.Errorf("send command: %w", err)
	}

	if waiter != nil {
		m.pending.Add(1)
		go m.closeOnSuccess(ctx, req.ID, launch.Terminal, waiter)
	}

	slogger.L(ctx).Debug("launched command",
		"id", req.ID,
		"terminal", launch.Terminal.Name,
		"created", launch.Created,
		"reused", launch.Reused,
	)
	return launch, nil
}

// ownTerminal applies the owned-terminal policy. Callers hold m.mu.
func (m *Manager) ownTerminal(ctx context.Context, req *Request) (*Launch, error) {
	term, ok := m.tracked[req.ID]
	if !ok {
		// A previous process may have left the command's terminal running.
		adopted, found, err := m.adopt(ctx, names.Managed(req.ID))
		if err != nil {
			return nil, err
		}
		if found && !m.owned(adopted) {
			term, ok = adopted, true
			m.tracked[req.ID] = term
		}
	}

	if ok {
		exited, err := m.host.Exited(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("check terminal %s: %w", term.Name, err)
		}
		switch {
		case exited:
			delete(m.tracked, req.ID)
		case req.SingleInstance:
			if err := m.host.Dispose(ctx, term); err != nil && !errors.Is(err, host.ErrTerminalNotFound) {
				slogger.L(ctx).Warn("dispose terminal", "terminal", term.Name, "error", err)
			}
			delete(m.tracked, req.ID)
		default:
			if err := m.host.SendText(ctx, term, m.host.Shell().ClearCommand()); err != nil {
				return nil, fmt.Errorf("clear terminal: %w", err)
			}
			return &Launch{Terminal: term, Reused: true}, nil
		}
	}

	term, err := m.host.Create(ctx, &host.TerminalOptions{
		Name: names.Managed(req.ID),
		Cwd:  req.Cwd,
		Env:  req.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("create terminal: %w", err)
	}
	m.tracked[req.ID] = term
	return &Launch{Terminal: term, Created: true}, nil
}

// owned reports whether any command already tracks t. Callers hold m.mu.
func (m *Manager) owned(t host.Terminal) bool {
	for _, tracked := range m.tracked {
		if tracked.ID == t.ID {
			return true
		}
	}
	return false
}

func (m *Manager) adopt(ctx context.Context, name string) (host.Terminal, bool, error) {
	terms, err := m.host.List(ctx)
	if err != nil {
		return host.Terminal{}, false, fmt.Errorf("list terminals: %w", err)
	}
	for _, t := range terms {
		if t.Name == name {
			return t, true, nil
		}
	}
	return host.Terminal{}, false, nil
}

// sharedTerminal picks the first terminal nobody owns, or creates one.
// Callers hold m.mu.
func (m *Manager) sharedTerminal(ctx context.Context, req *Request) (*Launch, error) {
	terms, err := m.host.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list terminals: %w", err)
	}

	owned := make(map[string]bool, len(m.tracked))
	for _, t := range m.tracked {
		owned[t.ID] = true
	}
	taken := make(map[string]bool, len(terms))
	for _, t := range terms {
		taken[t.Name] = true
		if !owned[t.ID] && !names.IsManaged(t.Name) {
			return &Launch{Terminal: t}, nil
		}
	}

	name, err := names.GenerateUnique(func(n string) bool { return taken[n] }, 0)
	if err != nil {
		return nil, err
	}
	term, err := m.host.Create(ctx, &host.TerminalOptions{Name: name, Cwd: req.Cwd, Env: req.Env})
	if err != nil {
		return nil, fmt.Errorf("create terminal: %w", err)
	}
	return &Launch{Terminal: term, Created: true}, nil
}

func matchEnd(term host.Terminal, token string) func(host.ExecutionEnd) bool {
	return func(e host.ExecutionEnd) bool {
		if e.Terminal.ID != term.ID {
			return false
		}
		m, ok := sentinel.Parse(e.Line)
		return ok && m.Token == token
	}
}

// watchContext detaches a watcher from the launching call but keeps its
// logger. Watchers end with the manager.
func (m *Manager) watchContext(ctx context.Context) context.Context {
	return slogger.WithLogger(m.watchCtx, slogger.L(ctx))
}

func (m *Manager) closeOnSuccess(ctx context.Context, id string, term host.Terminal, waiter *events.Waiter[host.ExecutionEnd]) {
	defer m.pending.Done()

	end, err := waiter.Wait()
	if err != nil {
		return
	}
	if end.ExitCode != 0 {
		slogger.L(ctx).Info("command failed, keeping terminal", "terminal", term.Name, "exit_code", end.ExitCode)
		return
	}

	m.mu.Lock()
	if cur, ok := m.tracked[id]; ok && cur.ID == term.ID {
		delete(m.tracked, id)
	}
	m.mu.Unlock()

	// The launching call may be long gone; dispose with the watcher's context.
	if err := m.host.Dispose(m.watchContext(ctx), term); err != nil && !errors.Is(err, host.ErrTerminalNotFound) {
		slogger.L(ctx).Warn("close terminal", "terminal", term.Name, "error", err)
	}
}

// Wait blocks until every pending completion watcher has finished or ctx
// is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels pending completion watchers.
func (m *Manager) Close() {
	m.stopWatches()
}

// Tracked returns a snapshot of owned terminals keyed by command identifier.
func (m *Manager) Tracked() map[string]host.Terminal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]host.Terminal, len(m.tracked))
	for k, v := range m.tracked {
		out[k] = v
	}
	return out
}

// TrackedIDs returns the identifiers with an owned terminal, sorted.
func (m *Manager) TrackedIDs() []string {
	tracked := m.Tracked()
	ids := make([]string, 0, len(tracked))
	for id := range tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State reports the state of the command's owned terminal. Terminals left
// by a previous process are reported under their managed name.
func (m *Manager) State(ctx context.Context, id string) (State, host.Terminal, error) {
	m.mu.Lock()
	term, ok := m.tracked[id]
	m.mu.Unlock()

	if !ok {
		adopted, found, err := m.adopt(ctx, names.Managed(id))
		if err != nil {
			return NoTerminal, host.Terminal{}, err
		}
		if !found {
			return NoTerminal, host.Terminal{}, nil
		}
		term = adopted
	}

	exited, err := m.host.Exited(ctx, term)
	if err != nil {
		return NoTerminal, term, err
	}
	if exited {
		return ManagedExited, term, nil
	}
	return ManagedAlive, term, nil
}

// Classify reports whether a live terminal is owned by some command.
func (m *Manager) Classify(t host.Terminal) State {
	if names.IsManaged(t.Name) {
		return ManagedAlive
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.tracked {
		if cur.ID == t.ID {
			return ManagedAlive
		}
	}
	return Unmanaged
}
