package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/gobatch/internal/config"
	"github.com/3leaps/gobatch/pkg/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List catalog command templates",
	Long: `List the command templates available for selection, with the run log
each one appends to. Loading a --catalog file also validates it.

Example:
  gobatch catalog
  gobatch catalog --catalog my-catalog.yaml --json`,
	Args: cobra.NoArgs,
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().String("catalog", "", "Catalog file (YAML or JSON) replacing the built-in catalog")
	catalogCmd.Flags().StringP("dataset", "d", "", "Dataset path used to render log file names")
	catalogCmd.Flags().StringP("tool", "t", "", "Tool path used to render log file names")
	catalogCmd.Flags().Bool("json", false, "Output as JSON")
}

type catalogEntry struct {
	ID       string `json:"id"`
	LogFile  string `json:"log_file"`
	Template string `json:"template"`
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg := config.GetConfig()

	cat, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid catalog", err)
	}

	// Without a dataset, names are derived from sample paths.
	var params catalog.Params
	if strings.TrimSpace(cfg.Dataset) != "" {
		params = catalog.Params{Dataset: cfg.Dataset, ToolPath: cfg.ToolPath}
	}

	entries := make([]catalogEntry, 0, cat.Len())
	for _, id := range cat.IDs() {
		tmpl, _ := cat.Template(id)
		logFile, err := cat.LogFile(id, params)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid catalog entry", err)
		}
		entries = append(entries, catalogEntry{ID: id, LogFile: logFile, Template: tmpl.Text()})
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "ID\tLOG FILE\tTEMPLATE")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.LogFile, e.Template)
	}
	return nil
}
