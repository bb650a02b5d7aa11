package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/actionbar/internal/config"
	"github.com/jmgilman/actionbar/internal/exec"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View and modify configuration",
	Long: `View and modify actionbar configuration.

With no arguments, displays the merged configuration of the global file and
the workspace's .actionbar.yaml.
With one argument, displays the value for the specified key.
With two arguments, sets the value for the specified key in the global file.`,
	Example: `  # Show all config
  actionbar config

  # Show value for a specific key
  actionbar config defaultColor

  # Set a value
  actionbar config host shell

  # Open config file in editor
  actionbar config --edit`,
	Args:        cobra.RangeArgs(0, 2),
	Annotations: map[string]string{annotationLoaderOnly: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := LoaderFromContext(cmd.Context())
		if loader == nil {
			return errors.New("config loader not initialized")
		}
		out := cmd.OutOrStdout()

		if pathFlag, _ := cmd.Flags().GetBool("path"); pathFlag {
			fmt.Fprintln(out, loader.Path())
			if local := loader.LocalPath(); local != "" {
				fmt.Fprintln(out, local)
			}
			return nil
		}

		if editFlag, _ := cmd.Flags().GetBool("edit"); editFlag {
			local, _ := cmd.Flags().GetBool("local")
			return runEdit(cmd, loader, local)
		}

		switch len(args) {
		case 0:
			return runShowAll(out, loader)
		case 1:
			return runShowKey(out, loader, args[0])
		case 2:
			return runSetKey(out, loader, args[0], args[1])
		}

		return nil
	},
}

func runEdit(cmd *cobra.Command, loader *config.Loader, local bool) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return config.ErrNoEditor
	}

	// Load creates the global file if missing.
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := loader.Path()
	if local {
		if loader.LocalPath() == "" {
			return errors.New("no workspace: use --workspace to select one")
		}
		path = loader.LocalPath()
	}

	_, err := exec.New().Run(cmd.Context(), &exec.RunOptions{
		Name:   editor,
		Args:   []string{path},
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}

func runShowAll(out io.Writer, loader *config.Loader) error {
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	fmt.Fprint(out, string(data))
	return nil
}

func runShowKey(out io.Writer, loader *config.Loader, key string) error {
	if err := config.ValidateKey(key); err != nil {
		return err
	}

	// Load to ensure file exists
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	value, err := loader.Get(key)
	if err != nil {
		return err
	}

	switch v := value.(type) {
	case nil:
		fmt.Fprintln(out, "")
	case string:
		fmt.Fprintln(out, v)
	case map[string]any, []any:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}
		fmt.Fprint(out, string(data))
	default:
		fmt.Fprintln(out, value)
	}

	return nil
}

func runSetKey(out io.Writer, loader *config.Loader, key, value string) error {
	// Load first to ensure file exists
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := loader.Set(key, value); err != nil {
		return err
	}

	fmt.Fprintf(out, "Set %s = %s\n", key, value)
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("edit", false, "open config file in $EDITOR")
	configCmd.Flags().Bool("local", false, "with --edit, open the workspace's .actionbar.yaml")
	configCmd.Flags().Bool("path", false, "print the config file paths")
}
