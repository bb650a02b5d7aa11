package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/launcher"
	"github.com/jmgilman/actionbar/internal/prompt"
	"github.com/jmgilman/actionbar/internal/registry"
	"github.com/jmgilman/actionbar/internal/workspace"
)

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}

// editorFromFlags builds the active editor from --file, --line, --column
// and --selection. A relative file is taken from the working directory.
func editorFromFlags(cmd *cobra.Command) (*host.EditorState, error) {
	flags := cmd.Flags()
	file, _ := flags.GetString("file")
	line, _ := flags.GetInt("line")
	column, _ := flags.GetInt("column")
	selection, _ := flags.GetString("selection")

	if file == "" && selection != "" {
		return nil, errors.New("--selection requires --file")
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return workspace.Editor(wd, file, line, column, selection), nil
}

// pickEntry returns the entry named by args, or asks the user to choose one.
func pickEntry(a *App, args []string, title string) (registry.Entry, error) {
	if len(args) > 0 {
		return a.Registry.Find(args[0])
	}

	entries := a.Registry.Entries()
	if len(entries) == 0 {
		return registry.Entry{}, errors.New(registry.NoCommandsMessage)
	}
	options := make([]prompt.Option, len(entries))
	for i, e := range entries {
		options[i] = prompt.Option{Label: e.Spec.Name, Description: e.Button.Tooltip}
	}
	idx, err := a.Prompter.Choice(title, options)
	if err != nil {
		return registry.Entry{}, err
	}
	return entries[idx], nil
}

// invoke runs a registered identifier. A missing command has already been
// reported through the bar and is not an error for the caller.
func invoke(ctx context.Context, a *App, id string) error {
	err := a.Commands.Execute(ctx, id)
	if errors.Is(err, launcher.ErrNoCommand) {
		return nil
	}
	return err
}
