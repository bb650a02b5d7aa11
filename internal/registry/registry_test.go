package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/actionbar/internal/config"
	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/host/hosttest"
	"github.com/jmgilman/actionbar/internal/session"
)

type staticLoader struct {
	mu  sync.Mutex
	cfg *config.Config
	err error
}

func (l *staticLoader) Load() (*config.Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	cp := *l.cfg
	return &cp, nil
}

func (l *staticLoader) set(cfg *config.Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
}

func (l *staticLoader) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

type recordingInvoker struct {
	mu    sync.Mutex
	specs []config.CommandSpec
}

func (r *recordingInvoker) Invoke(_ context.Context, spec *config.CommandSpec) (*session.Launch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = append(r.specs, *spec)
	return nil, nil
}

func (r *recordingInvoker) invoked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.specs {
		out = append(out, s.Command)
	}
	return out
}

type fixture struct {
	registry *Registry
	loader   *staticLoader
	invoker  *recordingInvoker
	commands *host.CommandTable
	ui       *hosttest.UI
	changes  *hosttest.ConfigChanges
}

func newFixture(cfg *config.Config, discover DiscoverFunc) *fixture {
	f := &fixture{
		loader:   &staticLoader{cfg: cfg},
		invoker:  &recordingInvoker{},
		commands: host.NewCommandTable(nil),
		ui:       &hosttest.UI{},
		changes:  &hosttest.ConfigChanges{},
	}
	f.registry = New(Options{
		Loader:   f.loader,
		Invoker:  f.invoker,
		Commands: f.commands,
		UI:       f.ui,
		Changes:  f.changes,
		Discover: discover,
	})
	return f
}

func baseConfig(cmds ...config.CommandSpec) *config.Config {
	return &config.Config{DefaultColor: "white", Commands: cmds}
}

func TestRegistry_Reload_BindsCommandsAndButtons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseConfig(
		config.CommandSpec{Name: "Run Tests", Command: "go test ./..."},
		config.CommandSpec{Name: "Build", Command: "make", Tooltip: "Build it", Color: "green"},
	), nil)

	require.NoError(t, f.registry.Reload(ctx))

	assert.Equal(t, []host.Button{
		{Command: "extension.RunTests", Text: "Run Tests", Tooltip: "go test ./...", Color: "white"},
		{Command: "extension.Build", Text: "Build", Tooltip: "Build it", Color: "green"},
	}, f.ui.Buttons())
	assert.Equal(t, []string{"extension.Build", "extension.RunTests"}, f.commands.IDs())

	require.NoError(t, f.commands.Execute(ctx, "extension.RunTests"))
	assert.Equal(t, []string{"go test ./..."}, f.invoker.invoked())
}

func TestRegistry_Reload_DisposesPreviousGeneration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseConfig(
		config.CommandSpec{Name: "A", Command: "a"},
		config.CommandSpec{Name: "B", Command: "b"},
	), nil)

	require.NoError(t, f.registry.Reload(ctx))
	f.loader.set(baseConfig(config.CommandSpec{Name: "C", Command: "c"}))
	require.NoError(t, f.registry.Reload(ctx))

	assert.Equal(t, []string{"extension.C"}, f.commands.IDs())
	require.Len(t, f.ui.Buttons(), 1)
	assert.Equal(t, "C", f.ui.Buttons()[0].Text)
	assert.Equal(t, 3, f.ui.Created())
	assert.Equal(t, 1, f.changes.Subscribers())

	err := f.commands.Execute(ctx, "extension.A")
	assert.ErrorIs(t, err, host.ErrCommandNotFound)
}

func TestRegistry_Reload_NoCommands(t *testing.T) {
	f := newFixture(baseConfig(), nil)

	require.NoError(t, f.registry.Reload(context.Background()))

	assert.Empty(t, f.ui.Buttons())
	assert.Empty(t, f.commands.IDs())
	assert.Equal(t, []hosttest.Message{{Text: NoCommandsMessage, Timeout: NoCommandsTimeout}}, f.ui.Messages())
}

func TestRegistry_Reload_ToEmptyList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseConfig(
		config.CommandSpec{Name: "A", Command: "a"},
		config.CommandSpec{Name: "B", Command: "b"},
	), nil)
	require.NoError(t, f.registry.Reload(ctx))
	require.Len(t, f.ui.Buttons(), 2)
	require.Empty(t, f.ui.Messages())

	f.loader.set(baseConfig())
	f.changes.Fire()

	assert.Empty(t, f.ui.Buttons())
	assert.Empty(t, f.commands.IDs())
	assert.Empty(t, f.registry.Entries())
	assert.Equal(t, []hosttest.Message{{Text: NoCommandsMessage, Timeout: NoCommandsTimeout}}, f.ui.Messages())
	assert.ErrorIs(t, f.commands.Execute(ctx, "extension.A"), host.ErrCommandNotFound)
}

func TestRegistry_Reload_ReloadButton(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig(config.CommandSpec{Name: "A", Command: "a"})
	cfg.ReloadButton = "↻"
	f := newFixture(cfg, nil)

	require.NoError(t, f.registry.Reload(ctx))

	buttons := f.ui.Buttons()
	require.Len(t, buttons, 2)
	assert.Equal(t, host.Button{Command: RefreshCommand, Text: "↻", Tooltip: RefreshTooltip, Color: "white"}, buttons[0])
	assert.Equal(t, 0, f.changes.Subscribers())

	// Pressing the reload button picks up new settings.
	next := baseConfig(config.CommandSpec{Name: "B", Command: "b"})
	next.ReloadButton = "↻"
	f.loader.set(next)
	require.NoError(t, f.commands.Execute(ctx, RefreshCommand))

	buttons = f.ui.Buttons()
	require.Len(t, buttons, 2)
	assert.Equal(t, "B", buttons[1].Text)
}

func TestRegistry_Reload_ReloadButtonWithoutCommands(t *testing.T) {
	cfg := baseConfig()
	cfg.ReloadButton = "↻"
	f := newFixture(cfg, nil)

	require.NoError(t, f.registry.Reload(context.Background()))

	require.Len(t, f.ui.Buttons(), 1)
	assert.Len(t, f.ui.Messages(), 1)
}

func TestRegistry_Reload_OnConfigChange(t *testing.T) {
	f := newFixture(baseConfig(config.CommandSpec{Name: "A", Command: "a"}), nil)
	require.NoError(t, f.registry.Reload(context.Background()))

	f.loader.set(baseConfig(
		config.CommandSpec{Name: "A", Command: "a"},
		config.CommandSpec{Name: "B", Command: "b"},
	))
	f.changes.Fire()

	assert.Len(t, f.ui.Buttons(), 2)
	assert.Equal(t, 1, f.changes.Subscribers())
}

func TestRegistry_Reload_OrderWithInheritanceAndDiscovery(t *testing.T) {
	cfg := &config.Config{
		DefaultColor:          "white",
		InheritGlobalCommands: true,
		LoadNpmCommands:       true,
		HasLocalCommands:      true,
		GlobalCommands:        []config.CommandSpec{{Name: "Global", Command: "g"}},
		Commands:              []config.CommandSpec{{Name: "Local", Command: "l"}},
	}
	discover := func(context.Context, *config.Config) ([]config.CommandSpec, error) {
		return []config.CommandSpec{{Name: "test", Command: "npm run test", SingleInstance: true}}, nil
	}
	f := newFixture(cfg, discover)

	require.NoError(t, f.registry.Reload(context.Background()))

	var names []string
	for _, e := range f.registry.Entries() {
		names = append(names, e.Spec.Name)
	}
	assert.Equal(t, []string{"Global", "Local", "test"}, names)
}

func TestRegistry_Reload_DiscoveryDisabled(t *testing.T) {
	called := false
	discover := func(context.Context, *config.Config) ([]config.CommandSpec, error) {
		called = true
		return nil, nil
	}
	f := newFixture(baseConfig(config.CommandSpec{Name: "A", Command: "a"}), discover)

	require.NoError(t, f.registry.Reload(context.Background()))
	assert.False(t, called)
}

func TestRegistry_Reload_DiscoveryErrorKeepsConfiguredCommands(t *testing.T) {
	cfg := baseConfig(config.CommandSpec{Name: "A", Command: "a"})
	cfg.LoadNpmCommands = true
	discover := func(context.Context, *config.Config) ([]config.CommandSpec, error) {
		return nil, errors.New("bad glob")
	}
	f := newFixture(cfg, discover)

	require.NoError(t, f.registry.Reload(context.Background()))
	assert.Len(t, f.registry.Entries(), 1)
}

func TestRegistry_Reload_LoadError(t *testing.T) {
	f := newFixture(baseConfig(config.CommandSpec{Name: "A", Command: "a"}), nil)
	require.NoError(t, f.registry.Reload(context.Background()))

	f.loader.fail(errors.New("yaml: bad indentation"))
	err := f.registry.Reload(context.Background())

	require.Error(t, err)
	assert.Empty(t, f.ui.Buttons())
	assert.Len(t, f.ui.Errors(), 1)
	assert.Equal(t, 1, f.changes.Subscribers())
}

func TestRegistry_Reload_RecoversAfterFixedConfig(t *testing.T) {
	f := newFixture(baseConfig(config.CommandSpec{Name: "A", Command: "a"}), nil)
	require.NoError(t, f.registry.Reload(context.Background()))

	f.loader.fail(errors.New("yaml: bad indentation"))
	f.changes.Fire()
	assert.Empty(t, f.ui.Buttons())
	assert.Equal(t, 1, f.changes.Subscribers())

	f.loader.fail(nil)
	f.changes.Fire()

	assert.Equal(t, 1, f.changes.Subscribers())
	require.Len(t, f.ui.Buttons(), 1)
	assert.Equal(t, "A", f.ui.Buttons()[0].Text)
}

func TestRegistry_Reload_LoadErrorWithReloadButton(t *testing.T) {
	cfg := baseConfig(config.CommandSpec{Name: "A", Command: "a"})
	cfg.ReloadButton = "↻"
	f := newFixture(cfg, nil)
	require.NoError(t, f.registry.Reload(context.Background()))
	require.Equal(t, 0, f.changes.Subscribers())

	f.loader.fail(errors.New("yaml: bad indentation"))
	require.Error(t, f.registry.Reload(context.Background()))
	assert.Equal(t, 1, f.changes.Subscribers())

	f.loader.fail(nil)
	f.changes.Fire()

	assert.Len(t, f.ui.Buttons(), 2)
	assert.Equal(t, 0, f.changes.Subscribers())
}

func TestRegistry_IdentifierCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseConfig(
		config.CommandSpec{Name: "Run Tests", Command: "first"},
		config.CommandSpec{Name: "RunTests", Command: "second"},
	), nil)

	require.NoError(t, f.registry.Reload(ctx))

	assert.Len(t, f.ui.Buttons(), 2)
	require.NoError(t, f.commands.Execute(ctx, "extension.RunTests"))
	assert.Equal(t, []string{"second"}, f.invoker.invoked())

	entry, err := f.registry.Find("Run Tests")
	require.NoError(t, err)
	assert.Equal(t, "second", entry.Spec.Command)
}

func TestRegistry_Find(t *testing.T) {
	f := newFixture(baseConfig(config.CommandSpec{Name: "Build All", Command: "make"}), nil)
	require.NoError(t, f.registry.Reload(context.Background()))

	byName, err := f.registry.Find("Build All")
	require.NoError(t, err)
	byID, err := f.registry.Find("extension.BuildAll")
	require.NoError(t, err)
	assert.Equal(t, byName, byID)

	_, err = f.registry.Find("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_Dispose(t *testing.T) {
	f := newFixture(baseConfig(config.CommandSpec{Name: "A", Command: "a"}), nil)
	require.NoError(t, f.registry.Reload(context.Background()))

	f.registry.Dispose()

	assert.Empty(t, f.ui.Buttons())
	assert.Empty(t, f.commands.IDs())
	assert.Equal(t, 0, f.changes.Subscribers())
	assert.Empty(t, f.registry.Entries())
}
