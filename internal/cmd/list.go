package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmgilman/actionbar/internal/slogger"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured actions",
	Long: `List every action in registration order: inherited global commands,
workspace commands, then scripts discovered in package manifests.

With --resolve, the command line each action would run right now is shown
with variables filled in from --file, --line, --column and --selection.`,
	Example: `  # List actions
  actionbar list

  # Preview command lines for the current file
  actionbar list --resolve --file src/main.go --line 12`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolve, err := cmd.Flags().GetBool("resolve")
		if err != nil {
			return fmt.Errorf("get resolve flag: %w", err)
		}

		a, err := requireApp(cmd.Context())
		if err != nil {
			return err
		}

		entries := a.Registry.Entries()
		if len(entries) == 0 {
			msg := a.Bar.Message()
			if msg == "" {
				msg = "No actions configured"
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		header := "NAME\tID\tSTATE\tCOMMAND"
		if resolve {
			header = "NAME\tID\tSTATE\tRESOLVED"
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}

		for i := range entries {
			e := &entries[i]
			state, _, stateErr := a.Sessions.State(cmd.Context(), e.ID)
			if stateErr != nil {
				slogger.L(cmd.Context()).Debug("terminal state", "action", e.ID, "error", stateErr)
			}

			command := e.Spec.Command
			if resolve && command != "" && !e.Spec.UseVsCodeAPI {
				req, resolveErr := a.Launcher.Resolve(cmd.Context(), &e.Spec)
				if resolveErr != nil {
					command = "error: " + resolveErr.Error()
				} else {
					command = req.CommandLine
				}
			}

			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Spec.Name, e.ID, state, command); err != nil {
				return fmt.Errorf("write action: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("resolve", "r", false, "show command lines with variables resolved")
}
