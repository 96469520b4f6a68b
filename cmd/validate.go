package cmd

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Resolve and check the configuration without exporting",
	Long: `Merges the configuration file and flags exactly as export does, validates
the result and prints it with the password masked.`,
	RunE: runValidate,
}

func init() {
	addExportFlags(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	resolved, err := resolveConfig()
	if err != nil {
		return err
	}

	described, err := resolved.Describe()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(described)
	return err
}
