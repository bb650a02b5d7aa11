package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/session"
	"github.com/jmgilman/actionbar/internal/slogger"
)

var killCmd = &cobra.Command{
	Use:   "kill [action|terminal...]",
	Short: "Close terminals",
	Long: `Close the terminals of the given actions, or terminals by name or ID.
With --all, every managed terminal is closed. Unmanaged terminals are only
closed when named explicitly.`,
	Example: `  # Close the terminal of the Build action
  actionbar kill Build

  # Close every managed terminal without asking
  actionbar kill --all --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return fmt.Errorf("get all flag: %w", err)
		}
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return fmt.Errorf("get force flag: %w", err)
		}
		purge, err := cmd.Flags().GetBool("logs")
		if err != nil {
			return fmt.Errorf("get logs flag: %w", err)
		}
		if all == (len(args) > 0) {
			return errors.New("specify terminals or --all")
		}

		a, err := requireApp(cmd.Context())
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var targets []host.Terminal
		if all {
			terms, listErr := a.Terminals.List(ctx)
			if listErr != nil {
				return fmt.Errorf("list terminals: %w", listErr)
			}
			for _, t := range terms {
				if a.Sessions.Classify(t) == session.ManagedAlive {
					targets = append(targets, t)
				}
			}
		} else {
			for _, key := range args {
				t, findErr := findTerminal(ctx, a, key)
				if findErr != nil {
					return findErr
				}
				targets = append(targets, t)
			}
		}

		if len(targets) == 0 {
			slogger.L(ctx).Info("no terminals to close")
			return nil
		}

		if !force {
			labels := make([]string, len(targets))
			for i, t := range targets {
				labels[i] = t.Name
			}
			ok, confirmErr := a.Prompter.Confirm(
				fmt.Sprintf("Close %d terminal(s)?", len(targets)),
				strings.Join(labels, "\n"),
			)
			if confirmErr != nil {
				return confirmErr
			}
			if !ok {
				return nil
			}
		}

		for _, t := range targets {
			if err := a.Terminals.Dispose(ctx, t); err != nil {
				return fmt.Errorf("close %s: %w", t.Name, err)
			}
			if purge && a.Logs != nil {
				if err := a.Logs.Remove(t.Name); err != nil {
					slogger.L(ctx).Warn("remove terminal log", "terminal", t.Name, "error", err)
				}
			}
			a.Prompter.Print("Closed " + t.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(killCmd)

	killCmd.Flags().BoolP("all", "a", false, "close every managed terminal")
	killCmd.Flags().BoolP("force", "f", false, "do not ask for confirmation")
	killCmd.Flags().Bool("logs", false, "also remove the terminal's log")
}
