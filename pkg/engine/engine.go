// Package engine runs a command list under a bounded worker pool and
// appends one run record per completed command.
//
// Jobs start in command-list order, at most Config.Workers at a time, and
// may finish in any order. A failed job never cancels its siblings; failures
// are collected and reported together once every job has finished.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/3leaps/gobatch/pkg/cmdline"
	"github.com/3leaps/gobatch/pkg/runlog"
)

// Config configures engine behavior.
type Config struct {
	// Workers is the maximum number of jobs running at once.
	// Default: runtime.NumCPU()
	Workers int

	// LogDir is the directory run logs are appended under.
	// Default: "."
	LogDir string

	// JobTimeout bounds each external process. Zero means no limit.
	JobTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		LogDir:  ".",
	}
}

// Job is one scheduled execution of a command-list line.
type Job struct {
	Command string

	// Ordinal is the 1-based line position; Total is the line count.
	Ordinal int
	Total   int

	// LogFile is the derived run log file name.
	LogFile string
}

// Summary contains the outcome of a batch.
type Summary struct {
	BatchID   string
	Total     int
	Succeeded int

	// Failures are sorted by ordinal.
	Failures []*JobError

	// Records are in completion order.
	Records []runlog.Record

	// LogFiles lists the log files appended to, sorted.
	LogFiles []string

	Duration time.Duration
}

// Engine executes command lists.
type Engine struct {
	cfg    Config
	runner ProcessRunner
	logs   *runlog.Appender
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRunner replaces the os/exec process runner.
func WithRunner(r ProcessRunner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithLogger sets the diagnostic logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now for start times and durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. Zero values in cfg take their defaults; negative
// values are rejected.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.JobTimeout < 0 {
		return nil, fmt.Errorf("job timeout must not be negative")
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultConfig().LogDir
	}

	e := &Engine{
		cfg:    cfg,
		runner: ExecRunner{},
		logs:   runlog.NewAppender(cfg.LogDir),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Plan turns command-list lines into jobs. Lines whose log file name cannot
// be derived are returned as failures and are never executed.
func (e *Engine) Plan(lines []string) ([]Job, []*JobError) {
	jobs := make([]Job, 0, len(lines))
	var failures []*JobError
	for i, line := range lines {
		job := Job{Command: line, Ordinal: i + 1, Total: len(lines)}
		name, err := cmdline.LogFileName(line)
		if err != nil {
			failures = append(failures, newJobError(job, err))
			continue
		}
		job.LogFile = name
		jobs = append(jobs, job)
	}
	return jobs, failures
}

// RunOne executes a single job synchronously and appends its record to
// job.LogFile. The returned record is also what was written.
func (e *Engine) RunOne(ctx context.Context, job Job) (*runlog.Record, error) {
	argv, err := cmdline.Split(job.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cmdline.ErrUnrecognizedCommand, err)
	}
	fields, err := cmdline.Derive(job.Command)
	if err != nil {
		return nil, err
	}
	if job.LogFile == "" {
		if job.LogFile, err = cmdline.LogFileName(job.Command); err != nil {
			return nil, err
		}
	}

	runCtx := ctx
	if e.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.JobTimeout)
		defer cancel()
	}

	start := e.now()
	res, runErr := e.runner.Run(runCtx, argv)
	elapsed := e.now().Sub(start)

	if runErr != nil {
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %v", ctx.Err(), runErr)
		case runCtx.Err() != nil:
			return nil, fmt.Errorf("%w after %s: %w", ErrJobTimeout, e.cfg.JobTimeout, runErr)
		}
		return nil, runErr
	}

	rec := &runlog.Record{
		StartTime: start,
		Command:   job.Command,
		Evaluator: fields.Evaluator,
		Search:    fields.Search,
		Duration:  elapsed,
		Ordinal:   job.Ordinal,
		Total:     job.Total,
		LogFile:   job.LogFile,
	}
	if res != nil {
		rec.Stdout = res.Stdout
		rec.Stderr = res.Stderr
	}

	// The process already completed; its record is kept even if the batch
	// is being cancelled.
	if err := e.logs.Append(context.WithoutCancel(ctx), job.LogFile, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// RunAll runs every line under a fresh batch id. See RunBatch.
func (e *Engine) RunAll(ctx context.Context, lines []string) (*Summary, error) {
	return e.RunBatch(ctx, uuid.New().String(), lines)
}

// RunBatch runs every line with at most Config.Workers jobs in flight.
//
// The summary is always returned. When any job failed the error is a
// *BatchError. Cancelling ctx stops queued jobs from starting; they are
// reported as CANCELLED.
func (e *Engine) RunBatch(ctx context.Context, batchID string, lines []string) (*Summary, error) {
	start := e.now()
	logger := e.logger.With(zap.String("batch_id", batchID))

	jobs, failures := e.Plan(lines)
	for _, f := range failures {
		logger.Error("Job rejected", zap.Int("task", f.Ordinal), zap.String("code", f.Code), zap.Error(f.Err))
	}

	logger.Info("Starting batch",
		zap.Int("jobs", len(lines)),
		zap.Int("workers", e.cfg.Workers),
		zap.String("log_dir", e.cfg.LogDir))

	var (
		mu      sync.Mutex
		records []runlog.Record
	)

	p := pool.New().WithMaxGoroutines(e.cfg.Workers)
	for _, job := range jobs {
		p.Go(func() {
			jobLogger := logger.With(zap.Int("task", job.Ordinal), zap.Int("total", job.Total), zap.String("log_file", job.LogFile))

			var rec *runlog.Record
			err := ctx.Err()
			if err == nil {
				jobLogger.Debug("Job started", zap.String("command", job.Command))
				rec, err = e.RunOne(ctx, job)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				jerr := newJobError(job, err)
				failures = append(failures, jerr)
				jobLogger.Error("Job failed", append([]zap.Field{zap.String("code", jerr.Code), zap.Error(err)}, stderrField(err)...)...)
				return
			}
			records = append(records, *rec)
			jobLogger.Info("Job finished", zap.Duration("duration", rec.Duration))
		})
	}
	p.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Ordinal < failures[j].Ordinal })

	summary := &Summary{
		BatchID:   batchID,
		Total:     len(lines),
		Succeeded: len(records),
		Failures:  failures,
		Records:   records,
		LogFiles:  logFiles(records),
		Duration:  e.now().Sub(start),
	}

	logger.Info("Batch completed",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", len(summary.Failures)),
		zap.Duration("duration", summary.Duration))

	if len(failures) > 0 {
		return summary, newBatchError(summary)
	}
	return summary, nil
}

func logFiles(records []runlog.Record) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.LogFile]; ok {
			continue
		}
		seen[rec.LogFile] = struct{}{}
		out = append(out, rec.LogFile)
	}
	sort.Strings(out)
	return out
}

const stderrTailBytes = 2048

func stderrField(err error) []zap.Field {
	procErr, ok := asProcessError(err)
	if !ok || procErr.Stderr == "" {
		return nil
	}
	tail := procErr.Stderr
	if len(tail) > stderrTailBytes {
		tail = tail[len(tail)-stderrTailBytes:]
	}
	return []zap.Field{zap.String("stderr_tail", tail)}
}
