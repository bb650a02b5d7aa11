// Package registry binds command specifications to command identifiers and
// status bar buttons. Every Reload builds a new generation of bindings and
// disposes the previous one first.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmgilman/actionbar/internal/config"
	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/interpolate"
	"github.com/jmgilman/actionbar/internal/launcher"
	"github.com/jmgilman/actionbar/internal/names"
	"github.com/jmgilman/actionbar/internal/session"
	"github.com/jmgilman/actionbar/internal/slogger"
)

// Reload button constants.
const (
	RefreshCommand = "extension.refreshButtons"
	RefreshTooltip = "Refreshes the action buttons"
)

// NoCommandsMessage is shown for NoCommandsTimeout when nothing is
// configured.
const (
	NoCommandsMessage = "Action Buttons: You have no run commands."
	NoCommandsTimeout = 4 * time.Second
)

// ErrNotFound is returned when no entry matches a name or identifier.
var ErrNotFound = errors.New("command not found")

// configLoader is the internal interface for loading settings.
type configLoader interface {
	Load() (*config.Config, error)
}

// invoker is the internal interface for running a specification.
type invoker interface {
	Invoke(ctx context.Context, spec *config.CommandSpec) (*session.Launch, error)
}

// DiscoverFunc returns specifications found outside the settings, e.g. in
// package.json scripts.
type DiscoverFunc func(ctx context.Context, cfg *config.Config) ([]config.CommandSpec, error)

// Options configures a Registry.
type Options struct {
	Loader   configLoader
	Invoker  invoker
	Commands host.Commands
	UI       host.UI

	// Changes, if set, triggers a reload when no reload button is
	// configured.
	Changes host.ConfigChanges

	// Discover, if set, runs when loadNpmCommands is enabled.
	Discover DiscoverFunc
}

// Entry is one registered command.
type Entry struct {
	ID     string
	Spec   config.CommandSpec
	Button host.Button
}

// Registry owns the current generation of bindings.
type Registry struct {
	opts Options

	mu         sync.Mutex
	generation []host.Disposable
	entries    []Entry
	config     *config.Config
	reloadCtx  context.Context
}

// New creates an empty registry. Call Reload to populate it.
func New(opts Options) *Registry {
	return &Registry{opts: opts}
}

// Reload disposes the previous generation and registers every configured
// command in order: inherited global commands, local commands, then
// discovered scripts.
func (r *Registry) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := slogger.L(ctx)
	r.generation = host.DisposeAll(r.generation)
	r.entries = nil
	r.reloadCtx = slogger.WithLogger(context.WithoutCancel(ctx), log)

	cfg, err := r.opts.Loader.Load()
	if err != nil {
		// Keep listening so that fixing the file restores the buttons.
		if r.opts.Changes != nil {
			r.generation = append(r.generation, r.opts.Changes.OnDidChangeConfiguration(r.onConfigChange))
		}
		r.opts.UI.ShowError(fmt.Sprintf("Action Buttons: %v", err))
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Warn("invalid configuration", "error", err)
	}
	r.config = cfg

	if cfg.ReloadButton != "" {
		r.generation = append(r.generation,
			r.opts.Commands.Register(RefreshCommand, func(ctx context.Context, _ ...string) error {
				return r.Reload(ctx)
			}),
			r.opts.UI.CreateButton(host.Button{
				Command: RefreshCommand,
				Text:    cfg.ReloadButton,
				Tooltip: RefreshTooltip,
				Color:   cfg.DefaultColor,
			}),
		)
	} else if r.opts.Changes != nil {
		r.generation = append(r.generation, r.opts.Changes.OnDidChangeConfiguration(r.onConfigChange))
	}

	specs := cfg.Specs()
	if cfg.LoadNpmCommands && r.opts.Discover != nil {
		discovered, err := r.opts.Discover(ctx, cfg)
		if err != nil {
			log.Warn("discover scripts", "error", err)
		}
		specs = append(specs, discovered...)
	}

	if len(specs) == 0 {
		r.opts.UI.SetStatusMessage(NoCommandsMessage, NoCommandsTimeout)
		return nil
	}

	for i := range specs {
		r.bind(ctx, cfg, specs[i])
	}

	log.Debug("registered commands", "count", len(r.entries))
	return nil
}

func (r *Registry) bind(ctx context.Context, cfg *config.Config, spec config.CommandSpec) {
	if err := interpolate.Validate(spec.Command); err != nil {
		slogger.L(ctx).Warn("command references unknown variables", "action", spec.Name, "error", err)
	}
	if err := interpolate.ValidateCwd(spec.Cwd); err != nil {
		slogger.L(ctx).Warn("invalid cwd template", "action", spec.Name, "error", err)
	}

	id := launcher.Identifier(spec.Name)
	btn := host.Button{
		Command: id,
		Text:    spec.Name,
		Tooltip: spec.Tooltip,
		Color:   spec.Color,
	}
	if btn.Tooltip == "" {
		btn.Tooltip = spec.Command
	}
	if btn.Color == "" {
		btn.Color = cfg.DefaultColor
	}

	r.generation = append(r.generation,
		r.opts.Commands.Register(id, func(ctx context.Context, _ ...string) error {
			_, err := r.opts.Invoker.Invoke(ctx, &spec)
			return err
		}),
		r.opts.UI.CreateButton(btn),
	)
	r.entries = append(r.entries, Entry{ID: id, Spec: spec, Button: btn})
}

func (r *Registry) onConfigChange() {
	r.mu.Lock()
	ctx := r.reloadCtx
	r.mu.Unlock()

	if err := r.Reload(ctx); err != nil {
		slogger.L(ctx).Warn("reload after configuration change", "error", err)
	}
}

// Entries returns the current generation's commands in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Config returns the settings of the current generation.
func (r *Registry) Config() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// Find returns the last entry whose identifier or name matches key.
// Identifiers collide when names differ only in whitespace; the last
// registration owns the identifier.
func (r *Registry) Find(key string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := key
	if !strings.HasPrefix(key, names.CommandPrefix) {
		id = launcher.Identifier(key)
	}
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].ID == id {
			return r.entries[i], nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Dispose releases the current generation.
func (r *Registry) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation = host.DisposeAll(r.generation)
	r.entries = nil
}
