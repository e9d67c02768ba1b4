package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/gobatch/internal/config"
	"github.com/3leaps/gobatch/internal/observability"
	"github.com/3leaps/gobatch/pkg/batchstore"
	"github.com/3leaps/gobatch/pkg/builder"
	"github.com/3leaps/gobatch/pkg/engine"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every command in a command list",
	Long: `Run each line of the command list as an external process, at most
--workers at a time. Every completed command appends a run record to
<log-dir>/<technique>_<search>.log. A failing command does not stop the
others; failures are reported once the batch finishes.

Example:
  gobatch run
  gobatch run --commands batch.txt --workers 4 --log-dir runs`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
	runCmd.Flags().StringP("commands", "c", "", "Command list to run (default: commandlines.txt)")
}

func addRunFlags(c *cobra.Command) {
	c.Flags().IntP("workers", "w", 0, "Maximum concurrent commands (default: number of CPUs)")
	c.Flags().String("log-dir", "", "Directory run logs are appended under (default: .)")
	c.Flags().Duration("job-timeout", 0, "Kill a command after this long (0 = no limit)")
	c.Flags().String("state-dir", "", "Directory batch history is kept under")
}

func runRun(cmd *cobra.Command, _ []string) error {
	return runCommands(cmd.Context(), cmd.OutOrStdout(), config.GetConfig(), "")
}

// runCommands executes cfg.CommandFile and records the batch in history.
// selectionText is recorded when the list was just built from a selection.
func runCommands(ctx context.Context, out io.Writer, cfg *config.Config, selectionText string) error {
	lines, err := builder.ReadCommandFile(cfg.CommandFile)
	if err != nil {
		observability.CLILogger.Error("Failed to read command list",
			zap.String("path", cfg.CommandFile),
			zap.Error(err))
		if errors.Is(err, fs.ErrNotExist) {
			return exitError(foundry.ExitFileNotFound, "Command list not found", err)
		}
		return exitError(foundry.ExitFileReadError, "Failed to read command list", err)
	}

	eng, err := engine.New(engine.Config{
		Workers:    cfg.Workers,
		LogDir:     cfg.LogDir,
		JobTimeout: cfg.JobTimeout,
	}, engine.WithLogger(observability.CLILogger))
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid engine configuration", err)
	}

	batchID := uuid.New().String()
	store := batchstore.NewStore(cfg.StateDir)
	now := time.Now().UTC()
	rec := &batchstore.BatchRecord{
		BatchID:     batchID,
		State:       batchstore.StateRunning,
		CommandFile: cfg.CommandFile,
		Selection:   selectionText,
		LogDir:      eng.Config().LogDir,
		Workers:     eng.Config().Workers,
		Total:       len(lines),
		PID:         os.Getpid(),
		CreatedAt:   now,
		StartedAt:   &now,
	}
	writeHistory(store, rec)

	summary, runErr := eng.RunBatch(ctx, batchID, lines)

	ended := time.Now().UTC()
	rec.EndedAt = &ended
	rec.PID = 0
	rec.Succeeded = summary.Succeeded
	rec.LogFiles = summary.LogFiles
	rec.State = batchstore.StateFor(summary.Total, summary.Succeeded)
	for _, f := range summary.Failures {
		rec.Failures = append(rec.Failures, batchstore.Failure{Task: f.Ordinal, Code: f.Code, Reason: f.Reason()})
	}
	writeHistory(store, rec)

	printSummary(out, summary)

	if runErr != nil {
		if ctx.Err() != nil {
			return exitError(foundry.ExitSignalInt, "Batch cancelled", runErr)
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Batch had failed commands", runErr)
	}
	return nil
}

// writeHistory is best effort; a batch is never failed for its history.
func writeHistory(store *batchstore.Store, rec *batchstore.BatchRecord) {
	if err := store.Write(rec); err != nil {
		observability.CLILogger.Warn("Failed to record batch history",
			zap.String("batch_id", rec.BatchID),
			zap.String("state_dir", store.RootDir()),
			zap.Error(err))
	}
}

func printSummary(out io.Writer, s *engine.Summary) {
	_, _ = fmt.Fprintf(out, "Batch %s: %d/%d commands succeeded in %s\n",
		shortBatchID(s.BatchID), s.Succeeded, s.Total, s.Duration.Round(time.Millisecond))
	for _, name := range s.LogFiles {
		_, _ = fmt.Fprintf(out, "  log   %s\n", name)
	}
	for _, f := range s.Failures {
		_, _ = fmt.Fprintf(out, "  FAIL  task %d/%d %s: %s\n", f.Ordinal, s.Total, f.Code, f.Reason())
	}
}
