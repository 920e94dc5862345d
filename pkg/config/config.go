// Package config loads modwrap settings from .modwrap.yaml, MODWRAP_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/modwrap/pkg/modhash"
	"github.com/Sumatoshi-tech/modwrap/pkg/observability"
	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
	"github.com/Sumatoshi-tech/modwrap/pkg/safeconv"
)

// Config file lookup.
const (
	configName      = ".modwrap"
	configType      = "yaml"
	envPrefix       = "MODWRAP"
	envKeySeparator = "_"
)

// Defaults.
const (
	DefaultStrategy     = string(rewrite.StrategyStatic)
	DefaultHashMode     = string(modhash.ModeIdentity)
	DefaultCacheEnabled = true
	DefaultCacheMaxSize = "64MB"
	DefaultWorkers      = 0
	DefaultLogLevel     = "info"
	// DefaultShutdownTimeout bounds the telemetry flush on exit.
	DefaultShutdownTimeout = "5s"
)

// Sentinel errors for configuration validation.
var (
	ErrInvalidWorkers   = errors.New("workers must be non-negative")
	ErrInvalidCacheSize = errors.New("invalid cache size")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrEmptyExclude     = errors.New("exclude entries must be non-empty")

	ErrInvalidSampleRatio     = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidShutdownTimeout = errors.New("invalid shutdown timeout")
)

// Config is the top-level modwrap configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Exclude       []string            `mapstructure:"exclude"`
	Strategy      string              `mapstructure:"strategy"`
	DiagnosticTag string              `mapstructure:"diagnostic_tag"`
	Hash          HashConfig          `mapstructure:"hash"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Workers       int                 `mapstructure:"workers"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// HashConfig selects the module hash function.
type HashConfig struct {
	Mode     string `mapstructure:"mode"`
	Length   int    `mapstructure:"length"`
	Manifest string `mapstructure:"manifest"`
}

// CacheConfig holds compiled output cache settings.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MaxSize is a humanized byte size such as "64MB" or "1GiB".
	MaxSize string `mapstructure:"max_size"`
	// Dir, when set, keeps a snapshot of the cache between runs.
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig holds OTLP export settings.
type ObservabilityConfig struct {
	Environment  string `mapstructure:"environment"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	// OTLPHeaders is a comma-separated key=value list, percent-encoded values.
	OTLPHeaders string `mapstructure:"otlp_headers"`
	// SampleRatio is the share of root traces kept. 0 keeps all of them.
	SampleRatio float64 `mapstructure:"sample_ratio"`
	TraceAll    bool    `mapstructure:"trace_all"`
	// TraceStages exports the per-stage child spans of each compile.
	TraceStages     bool   `mapstructure:"trace_stages"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise .modwrap.yaml is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
	}

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or env var is present.
func Default() *Config {
	return &Config{
		Exclude:       []string{rewrite.DefaultExclude},
		Strategy:      DefaultStrategy,
		DiagnosticTag: rewrite.DefaultDiagnosticTag,
		Hash:          HashConfig{Mode: DefaultHashMode},
		Cache:         CacheConfig{Enabled: DefaultCacheEnabled, MaxSize: DefaultCacheMaxSize},
		Workers:       DefaultWorkers,
		Logging:       LoggingConfig{Level: DefaultLogLevel},
		Observability: ObservabilityConfig{ShutdownTimeout: DefaultShutdownTimeout},
	}
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("exclude", []string{rewrite.DefaultExclude})
	v.SetDefault("strategy", DefaultStrategy)
	v.SetDefault("diagnostic_tag", rewrite.DefaultDiagnosticTag)

	v.SetDefault("hash.mode", DefaultHashMode)
	v.SetDefault("hash.length", 0)
	v.SetDefault("hash.manifest", "")

	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.max_size", DefaultCacheMaxSize)
	v.SetDefault("cache.dir", "")

	v.SetDefault("workers", DefaultWorkers)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.json", false)

	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_insecure", false)
	v.SetDefault("observability.environment", "")
	v.SetDefault("observability.otlp_headers", "")
	v.SetDefault("observability.sample_ratio", 0.0)
	v.SetDefault("observability.trace_all", false)
	v.SetDefault("observability.trace_stages", false)
	v.SetDefault("observability.shutdown_timeout", DefaultShutdownTimeout)
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if _, err := rewrite.ParseStrategy(c.Strategy); err != nil {
		return err
	}

	for _, path := range c.Exclude {
		if strings.TrimSpace(path) == "" {
			return ErrEmptyExclude
		}
	}

	mode, err := modhash.ParseMode(c.Hash.Mode)
	if err != nil {
		return err
	}

	if mode == modhash.ModeManifest && c.Hash.Manifest == "" {
		return modhash.ErrMissingManifest
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}

	if _, err := c.CacheMaxBytes(); err != nil {
		return err
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	if r := c.Observability.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, r)
	}

	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}

	if _, err := observability.ParseHeaders(c.Observability.OTLPHeaders); err != nil {
		return err
	}

	return nil
}

// ShutdownTimeout parses Observability.ShutdownTimeout.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	if c.Observability.ShutdownTimeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Observability.ShutdownTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidShutdownTimeout, c.Observability.ShutdownTimeout)
	}

	return d, nil
}

// CacheMaxBytes parses Cache.MaxSize.
func (c *Config) CacheMaxBytes() (int64, error) {
	if c.Cache.MaxSize == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(c.Cache.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidCacheSize, c.Cache.MaxSize)
	}

	return safeconv.SafeInt64(n), nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	if c.Logging.Level == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}

// HashOptions converts the hash section for modhash.New.
func (c *Config) HashOptions() modhash.Options {
	return modhash.Options{
		Mode:     modhash.Mode(c.Hash.Mode),
		Length:   c.Hash.Length,
		Manifest: c.Hash.Manifest,
	}
}

// RewriteConfig builds the rewriter configuration, resolving the hash function.
func (c *Config) RewriteConfig() (rewrite.Config, error) {
	strategy, err := rewrite.ParseStrategy(c.Strategy)
	if err != nil {
		return rewrite.Config{}, err
	}

	hash, err := modhash.New(c.HashOptions())
	if err != nil {
		return rewrite.Config{}, err
	}

	exclude := c.Exclude
	if exclude == nil {
		exclude = []string{}
	}

	return rewrite.Config{
		Exclude:       exclude,
		ModuleHash:    hash,
		Strategy:      strategy,
		DiagnosticTag: c.DiagnosticTag,
	}, nil
}

// ObservabilityConfig converts the logging and observability sections.
func (c *Config) ObservabilityConfig(version string) (observability.Config, error) {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version
	obs.Environment = c.Observability.Environment
	obs.OTLPEndpoint = c.Observability.OTLPEndpoint
	obs.OTLPInsecure = c.Observability.OTLPInsecure
	obs.SampleRatio = c.Observability.SampleRatio
	obs.TraceAll = c.Observability.TraceAll
	obs.TraceStages = c.Observability.TraceStages
	obs.LogJSON = c.Logging.JSON

	headers, err := observability.ParseHeaders(c.Observability.OTLPHeaders)
	if err != nil {
		return observability.Config{}, err
	}

	obs.OTLPHeaders = headers

	timeout, err := c.ShutdownTimeout()
	if err != nil {
		return observability.Config{}, err
	}

	if timeout > 0 {
		obs.ShutdownTimeout = timeout
	}

	level, err := c.LogLevel()
	if err != nil {
		return observability.Config{}, err
	}

	obs.LogLevel = level

	return obs, nil
}
