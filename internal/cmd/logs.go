package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/gobatch/internal/config"
	"github.com/3leaps/gobatch/internal/observability"
	"github.com/3leaps/gobatch/pkg/runlog"
)

var logsCmd = &cobra.Command{
	Use:   "logs [pattern]",
	Short: "Summarise run logs",
	Long: `Summarise the run logs under --log-dir whose names match a glob pattern
(doublestar syntax, default "*.log"). Each file is parsed back into its run
records; files that do not parse are reported and skipped.

Example:
  gobatch logs
  gobatch logs 'J48_*.log' --runs
  gobatch logs '**/*.log' --log-dir runs --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().String("log-dir", "", "Directory run logs are kept under (default: .)")
	logsCmd.Flags().Bool("runs", false, "List every run record")
	logsCmd.Flags().Bool("json", false, "Output as JSON")
}

type logSummary struct {
	File      string          `json:"file"`
	Size      int64           `json:"size_bytes"`
	Runs      int             `json:"runs"`
	TotalTime time.Duration   `json:"total_time_ns"`
	LastStart *time.Time      `json:"last_start,omitempty"`
	Records   []runlog.Record `json:"records,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func runLogs(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	listRuns, _ := cmd.Flags().GetBool("runs")
	cfg := config.GetConfig()

	pattern := "*.log"
	if len(args) == 1 {
		pattern = filepath.ToSlash(args[0])
	}
	if !doublestar.ValidatePattern(pattern) {
		return exitError(foundry.ExitInvalidArgument, "Invalid pattern", fmt.Errorf("bad glob: %s", pattern))
	}

	summaries, err := summariseLogs(cfg.LogDir, pattern, listRuns || jsonOutput)
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to scan run logs", err)
	}

	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(out, "No run logs found")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	printLogSummaries(out, summaries)
	if listRuns {
		for _, s := range summaries {
			printRuns(out, s)
		}
	}
	return nil
}

func summariseLogs(dir, pattern string, keepRecords bool) ([]logSummary, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]logSummary, 0, len(matches))
	for _, rel := range matches {
		s := logSummary{File: rel}
		records, size, err := readRunLog(filepath.Join(dir, filepath.FromSlash(rel)))
		s.Size = size
		if err != nil {
			observability.CLILogger.Warn("Skipping unreadable run log", zap.String("file", rel), zap.Error(err))
			s.Error = err.Error()
			out = append(out, s)
			continue
		}

		s.Runs = len(records)
		for i := range records {
			s.TotalTime += records[i].Duration
			if s.LastStart == nil || records[i].StartTime.After(*s.LastStart) {
				start := records[i].StartTime
				s.LastStart = &start
			}
		}
		if keepRecords {
			s.Records = records
		}
		out = append(out, s)
	}
	return out, nil
}

func readRunLog(path string) ([]runlog.Record, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	records, err := runlog.Parse(f)
	if err != nil {
		var formatErr *runlog.FormatError
		if errors.As(err, &formatErr) {
			return nil, info.Size(), fmt.Errorf("not a run log: %w", err)
		}
		return nil, info.Size(), err
	}
	return records, info.Size(), nil
}

func printLogSummaries(out io.Writer, summaries []logSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "FILE\tRUNS\tSIZE\tTOTAL TIME\tLAST RUN")
	for _, s := range summaries {
		if s.Error != "" {
			_, _ = fmt.Fprintf(w, "%s\t-\t%s\t-\t%s\n", s.File, humanize.IBytes(uint64(s.Size)), s.Error)
			continue
		}
		last := "-"
		if s.LastStart != nil {
			last = humanize.Time(*s.LastStart)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			s.File, s.Runs, humanize.IBytes(uint64(s.Size)), s.TotalTime.Round(10*time.Millisecond), last)
	}
}

func printRuns(out io.Writer, s logSummary) {
	if len(s.Records) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "\n%s\n", s.File)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "  START\tTASK\tSEARCH\tDURATION")
	for _, r := range s.Records {
		_, _ = fmt.Fprintf(w, "  %s\t%d/%d\t%s\t%s\n",
			r.StartTime.Format(runlog.TimeLayout), r.Ordinal, r.Total, r.Search, runlog.FormatDuration(r.Duration))
	}
}
