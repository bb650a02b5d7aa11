package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmgilman/actionbar/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs <action|terminal>",
	Short: "Show terminal output",
	Long: `Show the output log of an action's terminal or of any terminal by name.
Logs are only written when logDir is configured.`,
	Example: `  # Last 100 lines of the Build action
  actionbar logs Build

  # Follow output
  actionbar logs Build -f`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		follow, _ := flags.GetBool("follow")
		lines, _ := flags.GetInt("lines")
		raw, _ := flags.GetBool("raw")

		a, err := requireApp(cmd.Context())
		if err != nil {
			return err
		}
		if a.Logs == nil {
			return errors.New("terminal logs are disabled: set logDir in the configuration")
		}

		reader := logging.NewReader(a.Logs)
		reader.Plain = !raw
		name := logName(a, args[0])

		if follow {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err := reader.FollowWithHistory(ctx, name, cmd.OutOrStdout(), lines, logging.DefaultPollInterval)
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		out, err := reader.ReadLastN(name, lines)
		if err != nil {
			return err
		}
		for _, line := range out {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().BoolP("follow", "f", false, "follow new output")
	logsCmd.Flags().IntP("lines", "n", logging.DefaultTailLines, "number of lines to show")
	logsCmd.Flags().Bool("raw", false, "keep terminal escape sequences")
}
