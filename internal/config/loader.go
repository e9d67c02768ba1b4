// Package config loads gobatch configuration from defaults, an optional YAML
// file, GOBATCH_ environment variables and runtime overrides, in increasing
// order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

const (
	appName   = "gobatch"
	envPrefix = "GOBATCH_"

	// DefaultConfigFile is looked up in the working directory when no
	// explicit config file is given.
	DefaultConfigFile = "gobatch.yaml"
)

// Config is the effective gobatch configuration.
type Config struct {
	Dataset     string        `mapstructure:"dataset"`
	ToolPath    string        `mapstructure:"tool_path"`
	Selection   string        `mapstructure:"selection"`
	CommandFile string        `mapstructure:"command_file"`
	CatalogFile string        `mapstructure:"catalog_file"`
	Workers     int           `mapstructure:"workers"`
	LogDir      string        `mapstructure:"log_dir"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
	StateDir    string        `mapstructure:"state_dir"`
	Logging     LoggingConfig `mapstructure:"logging"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// EnvSpec maps one environment variable to a config path.
type EnvSpec struct {
	Name string
	Path []string
}

var (
	configMu  sync.RWMutex
	appConfig *Config
)

var envSpecs = []EnvSpec{
	{Name: envPrefix + "DATASET", Path: []string{"dataset"}},
	{Name: envPrefix + "TOOL_PATH", Path: []string{"tool_path"}},
	{Name: envPrefix + "SELECTION", Path: []string{"selection"}},
	{Name: envPrefix + "COMMAND_FILE", Path: []string{"command_file"}},
	{Name: envPrefix + "CATALOG_FILE", Path: []string{"catalog_file"}},
	{Name: envPrefix + "WORKERS", Path: []string{"workers"}},
	{Name: envPrefix + "LOG_DIR", Path: []string{"log_dir"}},
	{Name: envPrefix + "JOB_TIMEOUT", Path: []string{"job_timeout"}},
	{Name: envPrefix + "STATE_DIR", Path: []string{"state_dir"}},
	{Name: envPrefix + "LOG_LEVEL", Path: []string{"logging", "level"}},
	{Name: envPrefix + "LOG_FILE", Path: []string{"logging", "file"}},
	{Name: envPrefix + "LOG_MAX_SIZE_MB", Path: []string{"logging", "max_size_mb"}},
	{Name: envPrefix + "LOG_MAX_BACKUPS", Path: []string{"logging", "max_backups"}},
}

func getEnvSpecs() []EnvSpec {
	out := make([]EnvSpec, len(envSpecs))
	copy(out, envSpecs)
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset", "")
	v.SetDefault("tool_path", "weka.jar")
	v.SetDefault("selection", "1-10")
	v.SetDefault("command_file", "commandlines.txt")
	v.SetDefault("catalog_file", "")
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("log_dir", ".")
	v.SetDefault("job_timeout", "0s")
	v.SetDefault("state_dir", defaultStateDir())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
}

// defaultStateDir follows the XDG base directory layout.
func defaultStateDir() string {
	base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), appName, "batches")
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, appName, "batches")
}

// getUserConfigPaths returns candidate config files in lookup order.
func getUserConfigPaths() []string {
	paths := []string{DefaultConfigFile}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, appName, "config.yaml"))
	}
	return paths
}

// Load reads configuration without an explicit config file. See LoadFile.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", overrides...)
}

// LoadFile reads configuration and makes it the current config.
//
// An explicit path must exist. With an empty path the first existing file
// from the default lookup paths is used, if any. Overrides are nested maps
// keyed like the YAML file and win over everything else.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	for _, spec := range envSpecs {
		if err := v.BindEnv(strings.Join(spec.Path, "."), spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	file, err := resolveConfigFile(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	for _, o := range overrides {
		for key, value := range flatten("", o) {
			v.Set(key, value)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = file

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

func resolveConfigFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	for _, candidate := range getUserConfigPaths() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := m[k].(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = m[k]
	}
	return out
}

// GetConfig returns the most recently loaded config, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Validate checks value ranges. Empty dataset is allowed here; commands
// that need one check it themselves.
func (c *Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.ToolPath) == "" {
		errs = multierr.Append(errs, errors.New("tool_path is required"))
	}
	if strings.TrimSpace(c.CommandFile) == "" {
		errs = multierr.Append(errs, errors.New("command_file is required"))
	}
	if c.Workers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.JobTimeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("job_timeout must not be negative, got %s", c.JobTimeout))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		errs = multierr.Append(errs, errors.New("logging rotation limits must not be negative"))
	}
	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}
