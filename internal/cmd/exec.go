package cmd

import (
	"github.com/spf13/cobra"

	"github.com/3leaps/gobatch/internal/config"
	"github.com/3leaps/gobatch/pkg/selection"
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Build a command list and run it",
	Long: `Build the command list from a catalog selection, then run it. This is
build followed by run with the same configuration.

Example:
  gobatch exec --dataset train.arff
  gobatch exec --dataset train.arff --selection 2,4-6 --workers 2`,
	Args: cobra.NoArgs,
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
	addBuildFlags(execCmd)
	addRunFlags(execCmd)
	execCmd.Flags().StringP("commands", "c", "", "Intermediate command list (default: commandlines.txt)")
}

func runExec(cmd *cobra.Command, _ []string) error {
	cfg := config.GetConfig()

	_, ids, err := buildCommands(cfg)
	if err != nil {
		return err
	}
	return runCommands(cmd.Context(), cmd.OutOrStdout(), cfg, selection.Format(ids))
}
