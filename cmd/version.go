package cmd

import (
	"fmt"

	"github.com/fbz-tec/pgxstream/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pgxstream %s (build %s, commit %s)\n",
			version.AppVersion, version.BuildTime, version.GitCommit)
	},
}
