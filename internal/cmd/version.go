package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmgilman/actionbar/internal/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Display version information",
	Long:        `Display the version, commit, and build date of actionbar.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationLoaderOnly: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "actionbar %s\n", version.Version)
		fmt.Fprintf(out, "  commit: %s\n", version.Commit)
		fmt.Fprintf(out, "  built:  %s\n", version.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
