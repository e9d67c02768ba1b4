// Package cmd wires the gobatch command line.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/3leaps/gobatch/internal/config"
	"github.com/3leaps/gobatch/internal/observability"
)

const appName = "gobatch"

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "none",
	BuildDate: "unknown",
}

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Build and run batches of WEKA attribute selection commands",
	Long: `gobatch renders a selection of catalog command templates into a command
list and runs that list under a bounded worker pool, appending one run
record per completed command to a log file named after the classifier and
search method.

Example:
  gobatch build --dataset train.arff --selection 1-5
  gobatch run --commands commandlines.txt --workers 4
  gobatch exec --dataset train.arff --selection 1-3,7`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./gobatch.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file (rotated)")
}

// SetVersionInfo records build metadata reported by the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// flagConfigKeys maps command flags onto config keys. Only flags the user
// set explicitly are forwarded, as runtime overrides.
var flagConfigKeys = map[string]string{
	"dataset":     "dataset",
	"tool":        "tool_path",
	"selection":   "selection",
	"output":      "command_file",
	"commands":    "command_file",
	"catalog":     "catalog_file",
	"workers":     "workers",
	"log-dir":     "log_dir",
	"job-timeout": "job_timeout",
	"state-dir":   "state_dir",
	"log-file":    "logging.file",
}

func flagOverrides(flags *pflag.FlagSet) map[string]any {
	overrides := make(map[string]any)
	// Visit also walks flags whose Changed mark was cleared after parsing.
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if key, ok := flagConfigKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	return overrides
}

func initRuntime(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(cmd.Context(), cfgFile, flagOverrides(cmd.Flags()))
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	if err := observability.InitCLILoggerWithOptions(observability.Options{
		AppName:    appName,
		Level:      cfg.Logging.Level,
		Verbose:    verbose,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	return nil
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	// Flag and argument errors raised by cobra itself.
	return foundry.ExitInvalidArgument
}
