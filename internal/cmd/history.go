package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/gobatch/internal/config"
	"github.com/3leaps/gobatch/pkg/batchstore"
)

var historyCmd = &cobra.Command{
	Use:   "history [batch_id]",
	Short: "List executed batches",
	Long: `List batches recorded by run and exec, newest first. With a batch id
(or a unique prefix of one) show that batch in detail.

Example:
  gobatch history
  gobatch history 3f2a9c1e
  gobatch history --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("state-dir", "", "Directory batch history is kept under")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	store := batchstore.NewStore(config.GetConfig().StateDir)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		batchID, err := resolveBatchID(store, args[0])
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Unknown batch", err)
		}
		rec, err := store.Get(batchID)
		if err != nil {
			return exitError(foundry.ExitFileReadError, "Failed to read batch", err)
		}
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		printBatch(cmd, rec)
		return nil
	}

	batches, err := store.List()
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to read batch history", err)
	}
	if len(batches) == 0 {
		_, _ = fmt.Fprintln(out, "No batches found")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(batches)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "BATCH ID\tSTATE\tSTARTED\tDURATION\tOK/TOTAL\tWORKERS\tSELECTION\tCOMMANDS")
	for _, b := range batches {
		sel := b.Selection
		if sel == "" {
			sel = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			shortBatchID(b.BatchID),
			b.State,
			humanizeOptionalTime(b.StartedAt),
			batchDuration(b),
			b.Succeeded, b.Total,
			b.Workers,
			sel,
			b.CommandFile,
		)
	}
	return nil
}

func printBatch(cmd *cobra.Command, rec *batchstore.BatchRecord) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "batch_id=%s\n", rec.BatchID)
	_, _ = fmt.Fprintf(out, "state=%s\n", rec.State)
	_, _ = fmt.Fprintf(out, "command_file=%s\n", rec.CommandFile)
	if rec.Selection != "" {
		_, _ = fmt.Fprintf(out, "selection=%s\n", rec.Selection)
	}
	if rec.LogDir != "" {
		_, _ = fmt.Fprintf(out, "log_dir=%s\n", rec.LogDir)
	}
	_, _ = fmt.Fprintf(out, "workers=%d\n", rec.Workers)
	_, _ = fmt.Fprintf(out, "succeeded=%d/%d\n", rec.Succeeded, rec.Total)
	if rec.StartedAt != nil {
		_, _ = fmt.Fprintf(out, "started_at=%s (%s)\n", rec.StartedAt.UTC().Format(time.RFC3339), humanize.Time(*rec.StartedAt))
	}
	if rec.EndedAt != nil {
		_, _ = fmt.Fprintf(out, "ended_at=%s\n", rec.EndedAt.UTC().Format(time.RFC3339))
	}
	for _, name := range rec.LogFiles {
		_, _ = fmt.Fprintf(out, "log_file=%s\n", name)
	}
	for _, f := range rec.Failures {
		_, _ = fmt.Fprintf(out, "failure=task %d %s: %s\n", f.Task, f.Code, f.Reason)
	}
}

func shortBatchID(batchID string) string {
	batchID = strings.TrimSpace(batchID)
	if len(batchID) <= 12 {
		return batchID
	}
	return batchID[:12]
}

func humanizeOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.Time(*t)
}

func batchDuration(b batchstore.BatchRecord) string {
	if !b.State.Terminal() || b.StartedAt == nil || b.EndedAt == nil {
		return "-"
	}
	return b.EndedAt.Sub(*b.StartedAt).Round(time.Millisecond).String()
}

func resolveBatchID(store *batchstore.Store, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("batch_id is required")
	}

	// Exact match first.
	if _, err := store.Get(input); err == nil {
		return input, nil
	}

	// Prefix match (allows table-friendly short IDs).
	batches, err := store.List()
	if err != nil {
		return "", err
	}
	matches := make([]string, 0, 2)
	for _, b := range batches {
		if strings.HasPrefix(b.BatchID, input) {
			matches = append(matches, b.BatchID)
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("batch not found: %s", input)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("batch id prefix is ambiguous (%d matches); use the full batch_id", len(matches))
	}
	return matches[0], nil
}
