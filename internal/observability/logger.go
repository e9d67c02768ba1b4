// Package observability owns the process-wide CLI logger.
package observability

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CLILogger is the logger used by commands. It discards everything until
// one of the Init functions runs.
var CLILogger = zap.NewNop()

// Options configures the CLI logger.
type Options struct {
	AppName string

	// Level is a zap level name. Empty means info.
	Level string

	// Verbose forces debug level.
	Verbose bool

	// File, when set, also receives JSON logs through a rotating writer.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Console overrides the console destination. Default: os.Stderr.
	Console io.Writer
}

// InitCLILogger installs a console logger on stderr.
func InitCLILogger(appName string, verbose bool) {
	logger, err := NewCLILogger(Options{AppName: appName, Verbose: verbose})
	if err != nil {
		logger = zap.NewNop()
	}
	CLILogger = logger
}

// InitCLILoggerWithOptions installs a logger built from opts.
func InitCLILoggerWithOptions(opts Options) error {
	logger, err := NewCLILogger(opts)
	if err != nil {
		return err
	}
	CLILogger = logger
	return nil
}

// NewCLILogger builds a console logger, teed into a rotating JSON file when
// opts.File is set.
func NewCLILogger(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if strings.TrimSpace(opts.Level) != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	enabler := zap.NewAtomicLevelAt(level)

	var console zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if opts.Console != nil {
		console = zapcore.AddSync(opts.Console)
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), console, enabler),
	}

	if file := strings.TrimSpace(opts.File); file != "" {
		sink := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(sink), enabler))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if opts.AppName != "" {
		logger = logger.Named(opts.AppName)
	}
	return logger, nil
}
