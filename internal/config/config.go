package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

// EnvPrefix prefixes every environment override (DOCCHUNK_SPLIT_BLOCK_SIZE)
const EnvPrefix = "DOCCHUNK"

// Config holds all configuration for the chunking server and CLI
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Split    SplitConfig    `mapstructure:"split"`
	Splitter SplitterConfig `mapstructure:"splitter"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// SplitConfig holds the defaults applied when a request leaves a field out,
// and the range block sizes are clamped to
type SplitConfig struct {
	Method       string `mapstructure:"method"`
	BlockSize    int    `mapstructure:"block_size"`
	Overlap      int    `mapstructure:"overlap"`
	MinLength    int    `mapstructure:"min_length"`
	MinBlockSize int    `mapstructure:"min_block_size"`
	MaxBlockSize int    `mapstructure:"max_block_size"`
}

// SplitterConfig tunes the task runner
type SplitterConfig struct {
	CommitMode string `mapstructure:"commit_mode"`
}

// ExtractConfig bounds text extraction
type ExtractConfig struct {
	MaxTextBytes int64 `mapstructure:"max_text_bytes"`
}

// TasksConfig controls how long finished task snapshots stay pollable
type TasksConfig struct {
	Retention   time.Duration `mapstructure:"retention"`
	MaxRetained int           `mapstructure:"max_retained"`
}

// LogConfig selects log level and format
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// MetricsConfig enables the Prometheus endpoint when Address is set
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// DefaultDBPath returns ~/.docchunk/docchunk.db, or a file in the working
// directory when the home directory is unknown
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "docchunk.db"
	}
	return filepath.Join(home, ".docchunk", "docchunk.db")
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.db_path", DefaultDBPath())
	v.SetDefault("split.method", string(types.MethodParagraph))
	v.SetDefault("split.block_size", types.DefaultBlockSize)
	v.SetDefault("split.overlap", types.DefaultOverlap)
	v.SetDefault("split.min_length", 0)
	v.SetDefault("split.min_block_size", types.DefaultMinBlockSize)
	v.SetDefault("split.max_block_size", types.DefaultMaxBlockSize)
	v.SetDefault("splitter.commit_mode", string(types.CommitIncremental))
	v.SetDefault("extract.max_text_bytes", 32*1024*1024)
	v.SetDefault("tasks.retention", time.Hour)
	v.SetDefault("tasks.max_retained", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("metrics.address", "")
}

// Load reads configuration from defaults, an optional file at path and
// DOCCHUNK_* environment variables, in increasing precedence
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance, so command-line
// flags bound to v take precedence over everything else
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize trims and lower-cases enumerated fields
func (c *Config) Normalize() {
	c.Split.Method = string(types.ParseSplitMethod(c.Split.Method))
	c.Splitter.CommitMode = strings.ToLower(strings.TrimSpace(c.Splitter.CommitMode))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Storage.DBPath = expandHome(strings.TrimSpace(c.Storage.DBPath))
}

// Validate checks every section and joins the problems found
func (c *Config) Validate() error {
	var errs []error

	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is required"))
	}
	if !types.SplitMethod(c.Split.Method).Valid() {
		errs = append(errs, fmt.Errorf("split.method %q is not one of paragraph, heading, table, auto", c.Split.Method))
	}
	if err := c.SplitLimits().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("split: %w", err))
	}
	if c.Split.Overlap < 0 || c.Split.Overlap > types.MaxOverlap {
		errs = append(errs, fmt.Errorf("split.overlap must be between 0 and %d", types.MaxOverlap))
	}
	if c.Split.MinLength < 0 {
		errs = append(errs, errors.New("split.min_length must not be negative"))
	}
	if !types.CommitMode(c.Splitter.CommitMode).Valid() {
		errs = append(errs, fmt.Errorf("splitter.commit_mode %q is not atomic or incremental", c.Splitter.CommitMode))
	}
	if c.Extract.MaxTextBytes <= 0 {
		errs = append(errs, errors.New("extract.max_text_bytes must be greater than zero"))
	}
	if c.Tasks.Retention <= 0 {
		errs = append(errs, errors.New("tasks.retention must be greater than zero"))
	}
	if c.Tasks.MaxRetained <= 0 {
		errs = append(errs, errors.New("tasks.max_retained must be greater than zero"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// SplitLimits returns the configured block size range
func (c *Config) SplitLimits() types.SplitLimits {
	return types.SplitLimits{MinBlockSize: c.Split.MinBlockSize, MaxBlockSize: c.Split.MaxBlockSize}
}

// DefaultSplit returns the split configuration used for omitted request
// fields, normalized against the configured limits
func (c *Config) DefaultSplit() types.SplitConfig {
	cfg := types.SplitConfig{
		Method:    types.SplitMethod(c.Split.Method),
		BlockSize: c.Split.BlockSize,
		Overlap:   c.Split.Overlap,
		MinLength: c.Split.MinLength,
	}
	return cfg.Normalize(c.SplitLimits())
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
