package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach <action|terminal>",
	Short: "Attach to a terminal",
	Long: `Attach to the tmux session of an action, or to any terminal by name or ID.
Detach with the usual tmux key binding (prefix d).`,
	Example: `  # Attach to the terminal of the Build action
  actionbar attach Build

  # Attach to a terminal by name
  actionbar attach ab-Build`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp(cmd.Context())
		if err != nil {
			return err
		}
		if a.Tmux == nil {
			return errors.New("attach requires the tmux host")
		}

		t, err := findTerminal(cmd.Context(), a, args[0])
		if err != nil {
			return err
		}
		return a.Tmux.Attach(cmd.Context(), t)
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}
