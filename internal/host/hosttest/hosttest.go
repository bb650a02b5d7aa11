// Package hosttest provides in-memory host implementations for tests.
package hosttest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmgilman/actionbar/internal/events"
	"github.com/jmgilman/actionbar/internal/host"
)

// Terminals is an in-memory host.Terminals that records what was sent.
type Terminals struct {
	// OnSend, if set, is called after text is recorded. Tests use it to
	// emit execution ends.
	OnSend func(t host.Terminal, text string)

	// CreateErr, if set, fails every Create.
	CreateErr error

	shell host.Shell
	bus   *events.Bus[host.ExecutionEnd]

	mu      sync.Mutex
	terms   []*terminal
	next    int
	created []host.Terminal
}

type terminal struct {
	handle   host.Terminal
	exited   bool
	disposed bool
	shown    []bool
	sent     []string
}

// NewTerminals creates an empty fake host speaking shell.
func NewTerminals(shell host.Shell) *Terminals {
	return &Terminals{
		shell: shell,
		bus:   events.NewBus[host.ExecutionEnd]("hosttest.execution-end"),
	}
}

func (f *Terminals) find(id string) *terminal {
	for _, t := range f.terms {
		if t.handle.ID == id {
			return t
		}
	}
	return nil
}

// Create implements host.Terminals.
func (f *Terminals) Create(_ context.Context, opts *host.TerminalOptions) (host.Terminal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return host.Terminal{}, f.CreateErr
	}
	f.next++
	t := &terminal{handle: host.Terminal{ID: "t" + strconv.Itoa(f.next), Name: opts.Name}}
	f.terms = append(f.terms, t)
	f.created = append(f.created, t.handle)
	return t.handle, nil
}

// Add registers a terminal the caller did not create, e.g. one opened by
// the user.
func (f *Terminals) Add(name string) host.Terminal {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	t := &terminal{handle: host.Terminal{ID: "t" + strconv.Itoa(f.next), Name: name}}
	f.terms = append(f.terms, t)
	return t.handle
}

// List implements host.Terminals.
func (f *Terminals) List(_ context.Context) ([]host.Terminal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []host.Terminal
	for _, t := range f.terms {
		if !t.disposed && !t.exited {
			out = append(out, t.handle)
		}
	}
	return out, nil
}

// Exited implements host.Terminals. Unknown terminals count as exited.
func (f *Terminals) Exited(_ context.Context, target host.Terminal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.find(target.ID)
	return t == nil || t.exited || t.disposed, nil
}

// SendText implements host.Terminals.
func (f *Terminals) SendText(_ context.Context, target host.Terminal, text string) error {
	f.mu.Lock()
	t := f.find(target.ID)
	if t == nil || t.disposed {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", host.ErrTerminalNotFound, target.Name)
	}
	t.sent = append(t.sent, text)
	hook := f.OnSend
	f.mu.Unlock()

	if hook != nil {
		hook(target, text)
	}
	return nil
}

// Show implements host.Terminals.
func (f *Terminals) Show(_ context.Context, target host.Terminal, focus bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.find(target.ID)
	if t == nil {
		return fmt.Errorf("%w: %s", host.ErrTerminalNotFound, target.Name)
	}
	t.shown = append(t.shown, focus)
	return nil
}

// Dispose implements host.Terminals.
func (f *Terminals) Dispose(_ context.Context, target host.Terminal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.find(target.ID)
	if t == nil || t.disposed {
		return fmt.Errorf("%w: %s", host.ErrTerminalNotFound, target.Name)
	}
	t.disposed = true
	return nil
}

// OnDidEndExecution implements host.Terminals.
func (f *Terminals) OnDidEndExecution(ctx context.Context) (<-chan host.ExecutionEnd, error) {
	return f.bus.Subscribe(ctx)
}

// Shell implements host.Terminals.
func (f *Terminals) Shell() host.Shell {
	return f.shell
}

// Emit publishes an execution end to subscribers.
func (f *Terminals) Emit(end host.ExecutionEnd) error {
	return f.bus.Publish(end)
}

// Exit marks a terminal as exited, as if its shell ended.
func (f *Terminals) Exit(target host.Terminal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t := f.find(target.ID); t != nil {
		t.exited = true
	}
}

// Sent returns the text sent to a terminal.
func (f *Terminals) Sent(target host.Terminal) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t := f.find(target.ID); t != nil {
		return append([]string(nil), t.sent...)
	}
	return nil
}

// Shown returns the focus flag of every Show call for a terminal.
func (f *Terminals) Shown(target host.Terminal) []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t := f.find(target.ID); t != nil {
		return append([]bool(nil), t.shown...)
	}
	return nil
}

// Disposed reports whether a terminal was disposed.
func (f *Terminals) Disposed(target host.Terminal) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.find(target.ID)
	return t != nil && t.disposed
}

// Created returns every terminal created through Create, in order.
func (f *Terminals) Created() []host.Terminal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]host.Terminal(nil), f.created...)
}

// Close closes event subscriptions.
func (f *Terminals) Close() error {
	return f.bus.Close()
}

// UI records buttons and notices.
type UI struct {
	mu       sync.Mutex
	buttons  []*button
	errors   []string
	messages []Message
}

// Message is a recorded status message.
type Message struct {
	Text    string
	Timeout time.Duration
}

type button struct {
	host.Button
	disposed bool
}

// CreateButton implements host.UI.
func (u *UI) CreateButton(b host.Button) host.Disposable {
	u.mu.Lock()
	defer u.mu.Unlock()
	btn := &button{Button: b}
	u.buttons = append(u.buttons, btn)
	return host.DisposeFunc(func() {
		u.mu.Lock()
		btn.disposed = true
		u.mu.Unlock()
	})
}

// ShowError implements host.UI.
func (u *UI) ShowError(message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errors = append(u.errors, message)
}

// SetStatusMessage implements host.UI.
func (u *UI) SetStatusMessage(message string, timeout time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.messages = append(u.messages, Message{Text: message, Timeout: timeout})
}

// Buttons returns the buttons that have not been disposed, in creation order.
func (u *UI) Buttons() []host.Button {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []host.Button
	for _, b := range u.buttons {
		if !b.disposed {
			out = append(out, b.Button)
		}
	}
	return out
}

// Created returns the number of buttons ever created.
func (u *UI) Created() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.buttons)
}

// Errors returns every error notice.
func (u *UI) Errors() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.errors...)
}

// Messages returns every status message.
func (u *UI) Messages() []Message {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Message(nil), u.messages...)
}

// Workspace is a fixed host.Workspace.
type Workspace struct {
	Roots  []host.Folder
	Editor *host.EditorState
}

// Folders implements host.Workspace.
func (w *Workspace) Folders() []host.Folder {
	return w.Roots
}

// FolderOf implements host.Workspace with a path prefix match.
func (w *Workspace) FolderOf(path string) (host.Folder, bool) {
	for _, f := range w.Roots {
		if path == f.Path || strings.HasPrefix(path, f.Path+"/") {
			return f, true
		}
	}
	return host.Folder{}, false
}

// ActiveEditor implements host.Workspace.
func (w *Workspace) ActiveEditor() *host.EditorState {
	return w.Editor
}

// ConfigChanges is a manually triggered host.ConfigChanges.
type ConfigChanges struct {
	mu   sync.Mutex
	subs map[int]func()
	next int
}

// OnDidChangeConfiguration implements host.ConfigChanges.
func (c *ConfigChanges) OnDidChangeConfiguration(fn func()) host.Disposable {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = make(map[int]func())
	}
	id := c.next
	c.next++
	c.subs[id] = fn
	return host.DisposeFunc(func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	})
}

// Fire calls every subscriber.
func (c *ConfigChanges) Fire() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Subscribers returns the number of active subscriptions.
func (c *ConfigChanges) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
