package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/multiplexer"
	"github.com/jmgilman/actionbar/internal/names"
	"github.com/jmgilman/actionbar/internal/registry"
)

// errNoTerminal is returned when an action or name has no live terminal.
var errNoTerminal = errors.New("no terminal")

// findTerminal resolves an action name, identifier, terminal name or
// terminal ID to a live terminal. Actions resolve to their managed terminal.
func findTerminal(ctx context.Context, a *App, key string) (host.Terminal, error) {
	if entry, err := a.Registry.Find(key); err == nil {
		_, t, stateErr := a.Sessions.State(ctx, entry.ID)
		if stateErr != nil {
			return host.Terminal{}, stateErr
		}
		if t.ID != "" {
			return t, nil
		}
		key = names.Managed(entry.ID)
	} else if !errors.Is(err, registry.ErrNotFound) {
		return host.Terminal{}, err
	}

	terms, err := a.Terminals.List(ctx)
	if err != nil {
		return host.Terminal{}, fmt.Errorf("list terminals: %w", err)
	}
	for _, t := range terms {
		if t.ID == key || t.Name == key {
			return t, nil
		}
	}
	return host.Terminal{}, fmt.Errorf("%w: %s", errNoTerminal, key)
}

// logName returns the log name for an action or terminal name.
func logName(a *App, key string) string {
	if entry, err := a.Registry.Find(key); err == nil {
		key = names.Managed(entry.ID)
	}
	if a.Tmux != nil {
		return multiplexer.SanitizeName(key)
	}
	return key
}
