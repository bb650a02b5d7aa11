// Package cmd implements the actionbar CLI commands using Cobra.
// It provides commands for listing and running configured actions, the
// interactive button bar, and managing the terminals actions run in.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmgilman/actionbar/internal/config"
	"github.com/jmgilman/actionbar/internal/exec"
	"github.com/jmgilman/actionbar/internal/slogger"
	"github.com/jmgilman/actionbar/internal/version"
	"github.com/jmgilman/actionbar/internal/workspace"
)

// Command annotations read by the root pre-run hook.
const (
	// annotationLoaderOnly skips building the application graph.
	annotationLoaderOnly = "actionbar/loader-only"
	// annotationInteractive marks full-screen commands. Terminal output of
	// the shell host goes to logs only and errors are not echoed.
	annotationInteractive = "actionbar/interactive"
)

// app is the application graph, built in PersistentPreRunE and closed by
// Execute.
var app *App

var rootCmd = &cobra.Command{
	Use:   "actionbar",
	Short: "Run configured commands in managed terminals",
	Long: `actionbar reads a list of commands from its configuration, exposes each
one as a button and as a named action, and runs it in a managed terminal
with ${...} variables such as ${file} and ${workspaceFolder} filled in.

Global settings live in ~/.config/actionbar/config.yaml. A workspace may add
a .actionbar.yaml at its root, whose commands replace the global ones unless
inheritGlobalCommands is set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			return fmt.Errorf("get verbose flag: %w", err)
		}
		_, interactive := cmd.Annotations[annotationInteractive]

		ctx := cmd.Context()
		logger := slogger.New(slogger.Config{Verbosity: verbosity, Timestamps: interactive})
		ctx = slogger.WithLogger(ctx, logger)

		root, err := workspaceRoot(cmd)
		if err != nil {
			return err
		}

		loader, err := config.NewLoader(root)
		if err != nil {
			return fmt.Errorf("init config loader: %w", err)
		}
		ctx = WithLoader(ctx, loader)

		if _, ok := cmd.Annotations[annotationLoaderOnly]; ok {
			cmd.SetContext(ctx)
			return nil
		}

		cfg, err := loader.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if hostFlag, _ := cmd.Flags().GetString("host"); hostFlag != "" {
			if !config.IsValidHost(hostFlag) {
				return fmt.Errorf("%w: %s", config.ErrInvalidHost, hostFlag)
			}
			cfg.Host = hostFlag
		}
		ctx = WithConfig(ctx, cfg)

		editor, err := editorFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(ctx, &appOptions{
			Root:        root,
			Loader:      loader,
			Config:      cfg,
			Editor:      editor,
			Interactive: interactive,
			Stdout:      cmd.OutOrStdout(),
			Stderr:      cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		app = a
		ctx = WithApp(ctx, a)

		cmd.SetContext(ctx)
		return nil
	},
}

// ExecuteContext runs the root command with ctx and releases the
// application graph afterwards.
func ExecuteContext(ctx context.Context) error {
	defer func() {
		if app != nil {
			app.Close()
			app = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.Version = version.String()

	flags := rootCmd.PersistentFlags()
	flags.CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
	flags.StringP("workspace", "w", "", "workspace root (default: git top-level of the current directory)")
	flags.String("host", "", "terminal host: tmux or shell (default from config)")
	flags.String("file", "", "active file for ${file} and related variables")
	flags.Int("line", 1, "cursor line in the active file (1-based)")
	flags.Int("column", 1, "cursor column in the active file (1-based)")
	flags.String("selection", "", "selected text for ${selectedText}")
}

// workspaceRoot returns --workspace, else the git top-level of the working
// directory, else the working directory.
func workspaceRoot(cmd *cobra.Command) (string, error) {
	if ws, _ := cmd.Flags().GetString("workspace"); ws != "" {
		return absPath(ws)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	root, err := workspace.GitRoot(cmd.Context(), exec.New(), wd)
	if err != nil {
		if !errors.Is(err, workspace.ErrNotRepository) {
			return "", err
		}
		return wd, nil
	}
	return root, nil
}

// formatList joins strings with commas and "and" before the last item.
func formatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
