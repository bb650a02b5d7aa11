// Package launcher turns a command specification into an action: a host
// command dispatch, or an interpolated command line handed to the session
// manager.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/joho/godotenv"
	shellwords "mvdan.cc/sh/v3/shell"

	"github.com/jmgilman/actionbar/internal/config"
	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/interpolate"
	"github.com/jmgilman/actionbar/internal/session"
	"github.com/jmgilman/actionbar/internal/slogger"
	"github.com/jmgilman/actionbar/internal/vars"
)

// NoCommandMessage is shown when an action has no command.
const NoCommandMessage = "No command to execute for this action"

// ErrNoCommand is returned when an action has no command. The user has
// already been notified when it is returned.
var ErrNoCommand = errors.New("no command to execute for this action")

// sessionLauncher is the internal interface for the session manager.
type sessionLauncher interface {
	Launch(ctx context.Context, req *session.Request) (*session.Launch, error)
}

// Options configures a Launcher.
type Options struct {
	Sessions  sessionLauncher
	Workspace host.Workspace
	UI        host.UI
	Commands  host.Commands

	// SaveAllCommand runs before actions with saveAll set.
	SaveAllCommand string

	// Strict rejects templates with unresolved variables instead of
	// rendering them as "undefined".
	Strict bool

	// EnvFile, if set, is a dotenv file whose variables are added to new
	// terminals.
	EnvFile string

	// Home, ExecPath and OS default to the current process's values.
	Home     string
	ExecPath string
	OS       string
}

// Launcher invokes command specifications.
type Launcher struct {
	opts Options
}

// New creates a Launcher.
func New(opts Options) *Launcher {
	if opts.Home == "" {
		opts.Home, _ = os.UserHomeDir()
	}
	if opts.ExecPath == "" {
		opts.ExecPath, _ = os.Executable()
	}
	if opts.OS == "" {
		opts.OS = runtime.GOOS
	}
	return &Launcher{opts: opts}
}

// Snapshot captures the host state variables are built from.
func (l *Launcher) Snapshot() vars.Snapshot {
	s := vars.Snapshot{
		Home:     l.opts.Home,
		ExecPath: l.opts.ExecPath,
		OS:       l.opts.OS,
	}
	if l.opts.Workspace == nil {
		return s
	}
	s.Folders = l.opts.Workspace.Folders()
	if editor := l.opts.Workspace.ActiveEditor(); editor != nil {
		s.Editor = editor
		if f, ok := l.opts.Workspace.FolderOf(editor.File); ok {
			s.FileFolder = &f
		}
	}
	return s
}

// Resolve computes the session request for spec without running anything.
func (l *Launcher) Resolve(ctx context.Context, spec *config.CommandSpec) (*session.Request, error) {
	vctx := vars.Build(l.Snapshot())

	if spec.Cwd != "" {
		cwd, err := l.render(spec.Cwd, vctx, true)
		if err != nil {
			return nil, fmt.Errorf("resolve cwd: %w", err)
		}
		vctx = vctx.WithCwd(vars.Present(cwd))
	}

	line, err := l.render(spec.Command, vctx, false)
	if err != nil {
		return nil, fmt.Errorf("resolve command: %w", err)
	}

	env, err := l.environment(ctx)
	if err != nil {
		return nil, err
	}

	cwd, _ := vctx.Cwd.Get()
	return &session.Request{
		ID:              Identifier(spec.Name),
		Cwd:             cwd,
		Env:             env,
		CommandLine:     line,
		OpenOwnTerminal: spec.OwnTerminal(),
		SingleInstance:  spec.SingleInstance,
		Focus:           spec.Focus,
		CloseOnSuccess:  spec.CloseOnSuccess,
	}, nil
}

func (l *Launcher) render(tpl string, vctx *vars.Context, isCwd bool) (string, error) {
	if !l.opts.Strict {
		return interpolate.Interpolate(tpl, vctx), nil
	}
	if isCwd {
		if err := interpolate.ValidateCwd(tpl); err != nil {
			return "", err
		}
	}
	return interpolate.Strict(tpl, vctx)
}

// environment reads the env file into sorted KEY=VALUE pairs.
func (l *Launcher) environment(ctx context.Context) ([]string, error) {
	if l.opts.EnvFile == "" {
		return nil, nil
	}
	values, err := godotenv.Read(l.opts.EnvFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slogger.L(ctx).Debug("env file not found", "path", l.opts.EnvFile)
			return nil, nil
		}
		return nil, fmt.Errorf("read env file: %w", err)
	}

	env := make([]string, 0, len(values))
	for k, v := range values {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}

// Invoke runs spec. The returned Launch is nil when nothing was sent to a
// terminal.
func (l *Launcher) Invoke(ctx context.Context, spec *config.CommandSpec) (*session.Launch, error) {
	log := slogger.L(ctx).With("action", spec.Name)

	if spec.Command == "" {
		l.showError(NoCommandMessage)
		return nil, ErrNoCommand
	}

	if spec.SaveAll {
		l.saveAll(ctx)
	}

	if spec.UseVsCodeAPI {
		log.Debug("dispatching host command", "command", spec.Command, "args", spec.Args)
		if err := l.opts.Commands.Execute(ctx, spec.Command, spec.Args...); err != nil {
			return nil, fmt.Errorf("execute %s: %w", spec.Command, err)
		}
		return nil, nil
	}

	req, err := l.Resolve(ctx, spec)
	if err != nil {
		l.showError(fmt.Sprintf("%s: %v", spec.Name, err))
		return nil, err
	}

	launch, err := l.opts.Sessions.Launch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", spec.Name, err)
	}
	log.Info("command sent", "terminal", launch.Terminal.Name)
	return launch, nil
}

// saveAll runs the configured save command. Failures are logged, not fatal.
func (l *Launcher) saveAll(ctx context.Context) {
	if l.opts.SaveAllCommand == "" {
		slogger.L(ctx).Debug("saveAll requested but no saveAllCommand configured")
		return
	}
	fields, err := shellwords.Fields(l.opts.SaveAllCommand, nil)
	if err != nil || len(fields) == 0 {
		slogger.L(ctx).Warn("invalid saveAllCommand", "command", l.opts.SaveAllCommand, "error", err)
		return
	}
	if err := l.opts.Commands.Execute(ctx, fields[0], fields[1:]...); err != nil {
		slogger.L(ctx).Warn("save all", "error", err)
	}
}

func (l *Launcher) showError(msg string) {
	if l.opts.UI != nil {
		l.opts.UI.ShowError(msg)
	}
}
