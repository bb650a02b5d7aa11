package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/jmgilman/actionbar/internal/config"
	"github.com/jmgilman/actionbar/internal/discovery"
	"github.com/jmgilman/actionbar/internal/exec"
	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/launcher"
	"github.com/jmgilman/actionbar/internal/logging"
	"github.com/jmgilman/actionbar/internal/multiplexer"
	"github.com/jmgilman/actionbar/internal/prompt"
	"github.com/jmgilman/actionbar/internal/registry"
	"github.com/jmgilman/actionbar/internal/session"
	"github.com/jmgilman/actionbar/internal/shell"
	"github.com/jmgilman/actionbar/internal/slogger"
	"github.com/jmgilman/actionbar/internal/statusbar"
	"github.com/jmgilman/actionbar/internal/workspace"
)

// hostDeps lists the external binaries each terminal host needs.
var hostDeps = map[string][]string{
	config.HostTmux:  {"tmux"},
	config.HostShell: nil,
}

// App is the wired application graph shared by the subcommands.
type App struct {
	Root      string
	Loader    *config.Loader
	Executor  exec.Executor
	Terminals host.Terminals
	Commands  *host.CommandTable
	Sessions  *session.Manager
	Launcher  *launcher.Launcher
	Registry  *registry.Registry
	Bar       *statusbar.Bar
	Workspace *workspace.Workspace
	Watcher   *config.Watcher
	Logs      *logging.Dir
	Prompter  prompt.Prompter

	// Tmux is set when the tmux host is in use.
	Tmux *multiplexer.Tmux
	// Shell is set when the in-process shell host is in use.
	Shell *shell.Host
}

type appOptions struct {
	Root        string
	Loader      *config.Loader
	Config      *config.Config
	Editor      *host.EditorState
	Interactive bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// newApp wires every component and performs the first registry reload.
func newApp(ctx context.Context, opts *appOptions) (*App, error) {
	cfg := opts.Config
	if err := checkDependencies(cfg.Host); err != nil {
		return nil, err
	}

	executor := exec.New()
	a := &App{
		Root:     opts.Root,
		Loader:   opts.Loader,
		Executor: executor,
		Prompter: prompt.New(opts.Stdout),
	}
	if cfg.LogDir != "" {
		a.Logs = logging.NewDir(cfg.LogDir)
	}

	var native host.NativeCommands
	switch cfg.Host {
	case config.HostShell:
		out := opts.Stdout
		if opts.Interactive {
			out = io.Discard
		}
		a.Shell = shell.New(shell.Options{
			Executor: executor,
			Output:   out,
			LogDir:   cfg.LogDir,
		})
		a.Terminals, native = a.Shell, a.Shell
	default:
		a.Tmux = multiplexer.NewTmux(multiplexer.Options{
			Executor: executor,
			Shell:    host.Shell(cfg.Shell),
			LogDir:   cfg.LogDir,
			Client:   os.Getenv("TMUX"),
		})
		a.Terminals, native = a.Tmux, a.Tmux
	}

	ws, err := workspace.Open(ctx, executor, opts.Root, cfg.WorkspaceFolders)
	if err != nil {
		a.Close()
		return nil, err
	}
	ws.SetEditor(opts.Editor)
	a.Workspace = ws

	var errOut io.Writer
	if !opts.Interactive {
		errOut = opts.Stderr
	}
	a.Bar = statusbar.New(statusbar.Options{Errors: errOut})
	a.Commands = host.NewCommandTable(native)
	a.Sessions = session.NewManager(a.Terminals)
	a.Launcher = launcher.New(launcher.Options{
		Sessions:       a.Sessions,
		Workspace:      ws,
		UI:             a.Bar,
		Commands:       a.Commands,
		SaveAllCommand: cfg.SaveAllCommand,
		Strict:         cfg.StrictVariables,
		EnvFile:        cfg.EnvFile,
	})

	var changes host.ConfigChanges
	if opts.Interactive {
		watcher, err := newWatcher(opts.Loader, opts.Root, cfg)
		if err != nil {
			slogger.L(ctx).Warn("watch configuration", "error", err)
		} else {
			a.Watcher = watcher
			changes = watcher
		}
	}

	root := opts.Root
	a.Registry = registry.New(registry.Options{
		Loader:   opts.Loader,
		Invoker:  a.Launcher,
		Commands: a.Commands,
		UI:       a.Bar,
		Changes:  changes,
		Discover: func(ctx context.Context, cfg *config.Config) ([]config.CommandSpec, error) {
			return discovery.Discover(ctx, root, cfg.NpmManifests, cfg.DefaultColor)
		},
	})
	if err := a.Registry.Reload(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// newWatcher watches the settings files and every script manifest.
func newWatcher(loader *config.Loader, root string, cfg *config.Config) (*config.Watcher, error) {
	paths := []string{loader.Path()}
	if local := loader.LocalPath(); local != "" {
		paths = append(paths, local)
	}
	if cfg.LoadNpmCommands {
		manifests, err := discovery.Manifests(root, cfg.NpmManifests)
		if err != nil {
			return nil, err
		}
		paths = append(paths, manifests...)
	}
	return config.NewWatcher(paths...)
}

// Close releases watchers, pending completion watchers and host resources.
// Terminals themselves are left running.
func (a *App) Close() {
	if a.Watcher != nil {
		_ = a.Watcher.Close()
	}
	if a.Registry != nil {
		a.Registry.Dispose()
	}
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.Tmux != nil {
		_ = a.Tmux.Close()
	}
	if a.Shell != nil {
		_ = a.Shell.Close()
	}
}

// Settle waits for work started by a one-shot invocation: queued command
// lines of the shell host, then completion watchers.
func (a *App) Settle(ctx context.Context) error {
	if a.Shell != nil {
		if err := a.Shell.Drain(ctx); err != nil {
			return err
		}
	}
	return a.Sessions.Wait(ctx)
}

// checkDependencies verifies that the host's external binaries are available.
func checkDependencies(hostName string) error {
	e := exec.New()
	var missing []string
	for _, dep := range hostDeps[hostName] {
		if _, err := e.LookPath(dep); err != nil {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required dependencies: " + formatList(missing))
	}
	return nil
}

func requireApp(ctx context.Context) (*App, error) {
	a := AppFromContext(ctx)
	if a == nil {
		return nil, errors.New("application not initialized")
	}
	return a, nil
}
