package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmgilman/actionbar/internal/host"
	"github.com/jmgilman/actionbar/internal/names"
	"github.com/jmgilman/actionbar/internal/session"
	"github.com/jmgilman/actionbar/internal/slogger"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List terminals",
	Long: `List the terminals known to the host.

Managed terminals belong to an action that runs in its own terminal and are
named ab-<action>. Other terminals are unmanaged and may be picked by
actions with openOwnTerminal set to false.`,
	Example: `  # List terminals
  actionbar ps

  # Only terminals owned by actions
  actionbar ps --managed`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		managedOnly, err := cmd.Flags().GetBool("managed")
		if err != nil {
			return fmt.Errorf("get managed flag: %w", err)
		}

		a, err := requireApp(cmd.Context())
		if err != nil {
			return err
		}

		terms, err := a.Terminals.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list terminals: %w", err)
		}

		owners := terminalOwners(a)
		rows := make([]host.Terminal, 0, len(terms))
		for _, t := range terms {
			if managedOnly && a.Sessions.Classify(t) != session.ManagedAlive {
				continue
			}
			rows = append(rows, t)
		}

		if len(rows) == 0 {
			slogger.L(cmd.Context()).Info("no terminals found")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(w, "NAME\tID\tKIND\tACTION"); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for _, t := range rows {
			kind := "unmanaged"
			if a.Sessions.Classify(t) == session.ManagedAlive {
				kind = "managed"
			}
			action := owners[t.Name]
			if action == "" {
				action = "-"
			}
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.ID, kind, action); err != nil {
				return fmt.Errorf("write terminal: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}

		return nil
	},
}

// terminalOwners maps managed terminal names to the action that owns them.
func terminalOwners(a *App) map[string]string {
	owners := make(map[string]string)
	for _, e := range a.Registry.Entries() {
		owners[names.Managed(e.ID)] = e.Spec.Name
	}
	for id, t := range a.Sessions.Tracked() {
		if _, ok := owners[t.Name]; !ok {
			owners[t.Name] = id
		}
	}
	return owners
}

func init() {
	rootCmd.AddCommand(psCmd)

	psCmd.Flags().BoolP("managed", "m", false, "only list terminals owned by actions")
}
