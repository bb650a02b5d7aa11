package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmgilman/actionbar/internal/slogger"
)

var runCmd = &cobra.Command{
	Use:   "run [name]",
	Short: "Run an action",
	Long: `Run an action by name or identifier, exactly as pressing its button would.

Names are matched the way identifiers are built: whitespace is ignored, so
"Run Tests" and "RunTests" name the same action. Without a name, a picker
lists every action.

By default run waits for work it started in this process: command lines
queued in the shell host and close-on-success watchers. Use --no-wait to
return as soon as the command line has been sent.`,
	Example: `  # Run an action
  actionbar run Build

  # Run with the active file set
  actionbar run "Test File" --file internal/config/config.go

  # Pick an action interactively
  actionbar run`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noWait, err := cmd.Flags().GetBool("no-wait")
		if err != nil {
			return fmt.Errorf("get no-wait flag: %w", err)
		}

		a, err := requireApp(cmd.Context())
		if err != nil {
			return err
		}

		entry, err := pickEntry(a, args, "Run action")
		if err != nil {
			return err
		}

		slogger.L(cmd.Context()).Info("running action", "action", entry.ID)
		if err := invoke(cmd.Context(), a, entry.ID); err != nil {
			return err
		}

		if noWait {
			return nil
		}
		return a.Settle(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("no-wait", false, "return without waiting for the command to finish")
}
