package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jmgilman/actionbar/internal/statusbar"
)

var barCmd = &cobra.Command{
	Use:   "bar",
	Short: "Show the interactive action bar",
	Long: `Show every action as a button. Move with the arrow keys (or h and l),
press enter to run the selected action and q to quit.

The bar reloads when the settings or a script manifest change, unless
reloadButton is set, in which case a reload button is shown instead.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationInteractive: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp(cmd.Context())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		program := statusbar.NewProgram(a.Bar, func(id string) error {
			return invoke(ctx, a, id)
		}, cmd.InOrStdin(), cmd.OutOrStdout())

		return program.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(barCmd)
}
