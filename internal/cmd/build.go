package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/gobatch/internal/config"
	"github.com/3leaps/gobatch/internal/observability"
	"github.com/3leaps/gobatch/pkg/builder"
	"github.com/3leaps/gobatch/pkg/catalog"
	"github.com/3leaps/gobatch/pkg/selection"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Write a command list from a catalog selection",
	Long: `Render the selected catalog entries for a dataset and write them, one per
line in ascending id order, to the command list file. An existing file is
replaced; on a bad selection it is left untouched.

Example:
  gobatch build --dataset train.arff
  gobatch build --dataset train.arff --selection 1-3,7 --output batch.txt
  gobatch build --dataset train.arff --catalog my-catalog.yaml`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
	buildCmd.Flags().StringP("output", "o", "", "Command list to write (default: commandlines.txt)")
}

func addBuildFlags(c *cobra.Command) {
	c.Flags().StringP("dataset", "d", "", "Dataset path substituted into every command")
	c.Flags().StringP("tool", "t", "", "Tool path substituted into every command (default: weka.jar)")
	c.Flags().StringP("selection", "s", "", "Catalog ids, e.g. 1-3,5,8-10 (default: 1-10)")
	c.Flags().String("catalog", "", "Catalog file (YAML or JSON) replacing the built-in catalog")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg := config.GetConfig()

	path, ids, err := buildCommands(cfg)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d commands to %s\n", len(ids), path)
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// buildCommands writes the command list configured by cfg and returns its
// path and the selected ids.
func buildCommands(cfg *config.Config) (string, []int, error) {
	cat, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		observability.CLILogger.Error("Failed to load catalog",
			zap.String("path", cfg.CatalogFile),
			zap.Error(err))
		return "", nil, exitError(foundry.ExitInvalidArgument, "Invalid catalog", err)
	}

	if strings.TrimSpace(cfg.Dataset) == "" {
		return "", nil, exitError(foundry.ExitInvalidArgument, "Dataset is required", errors.New("set --dataset or GOBATCH_DATASET"))
	}
	params := catalog.Params{Dataset: cfg.Dataset, ToolPath: cfg.ToolPath}

	path, err := builder.BuildCommandFile(cat, params, cfg.Selection, cfg.CommandFile)
	if err != nil {
		var writeErr *builder.WriteError
		if errors.As(err, &writeErr) {
			observability.CLILogger.Error("Failed to write command list",
				zap.String("path", cfg.CommandFile),
				zap.Error(err))
			return "", nil, exitError(foundry.ExitFileWriteError, "Failed to write command list", err)
		}
		observability.CLILogger.Error("Invalid selection",
			zap.String("selection", cfg.Selection),
			zap.Error(err))
		return "", nil, exitError(foundry.ExitInvalidArgument, "Invalid selection", err)
	}

	// The build already validated the selection.
	ids, _ := selection.Parse(cfg.Selection)

	observability.CLILogger.Debug("Wrote command list",
		zap.String("path", path),
		zap.String("selection", selection.Format(ids)),
		zap.Int("commands", len(ids)),
		zap.Int("catalog_entries", cat.Len()))

	return path, ids, nil
}
