package host

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler is the body of a registered command.
type Handler func(ctx context.Context, args ...string) error

// Commands is the host's command-invocation system.
type Commands interface {
	Register(id string, fn Handler) Disposable
	Execute(ctx context.Context, id string, args ...string) error
}

// CommandTable is an in-process Commands implementation. Registering an
// identifier twice replaces the earlier handler. Identifiers that are not
// registered fall through to the native command runner, if any.
type CommandTable struct {
	mu       sync.RWMutex
	handlers map[string]*entry
	native   NativeCommands
}

type entry struct {
	fn Handler
}

// NewCommandTable creates a table. native may be nil.
func NewCommandTable(native NativeCommands) *CommandTable {
	return &CommandTable{
		handlers: make(map[string]*entry),
		native:   native,
	}
}

// Register binds fn to id. Disposing the result removes the binding only if
// it has not been replaced since.
func (t *CommandTable) Register(id string, fn Handler) Disposable {
	e := &entry{fn: fn}

	t.mu.Lock()
	t.handlers[id] = e
	t.mu.Unlock()

	return DisposeFunc(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.handlers[id] == e {
			delete(t.handlers, id)
		}
	})
}

// Execute runs the handler bound to id.
func (t *CommandTable) Execute(ctx context.Context, id string, args ...string) error {
	t.mu.RLock()
	e, ok := t.handlers[id]
	t.mu.RUnlock()

	if ok {
		return e.fn(ctx, args...)
	}
	if t.native != nil {
		return t.native.Execute(ctx, id, args...)
	}
	return fmt.Errorf("%w: %s", ErrCommandNotFound, id)
}

// Has reports whether id is registered.
func (t *CommandTable) Has(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.handlers[id]
	return ok
}

// IDs returns the registered identifiers, sorted.
func (t *CommandTable) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.handlers))
	for id := range t.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
