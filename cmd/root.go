package cmd

import (
	"fmt"
	"os"

	"github.com/fbz-tec/pgxstream/core/errs"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "pgxstream",
	Short: "Stream PostgreSQL query results into delimited text files",
	Long: `A CLI tool that streams the result of a single read-only query into a
delimited text file, fetching rows in batches through a server-side cursor.

Supported output formats:
 • csv    : comma separated, or any single-byte delimiter
 • tsv    : tab separated
 • custom : csv quoting with an explicitly chosen delimiter

Output can be compressed with gzip, zstd or lz4.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && quiet {
			return errs.Configf("cannot use --verbose and --quiet flags together")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output with detailed information")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Enable quiet mode: only display error messages")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errs.Configf("%w", err)
	})

	rootCmd.AddCommand(exportCmd, validateCmd, versionCmd)
}

// Execute runs the root command and exits with a status derived from the
// error kind.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errs.ExitCode(err))
	}
}
