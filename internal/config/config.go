// Package config loads wikiguard's runtime configuration from a file,
// environment variables, and CLI flags (in that increasing order of
// precedence, per viper's normal binding rules).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidPort           = errors.New("invalid listen port")
	ErrInvalidWikiPort       = errors.New("invalid wiki port")
	ErrInvalidDiffSizeLimit  = errors.New("diff size limit must be positive")
	ErrInvalidDiffTimeLimit  = errors.New("diff time limit must be positive")
	ErrInvalidMaxTimeouts    = errors.New("max consecutive diff timeouts must be positive")
	ErrInvalidRevisionWindow = errors.New("revision window must be positive")
	ErrCachePortWithoutHost  = errors.New("cache port set without cache host")
)

const (
	defaultListenPort                 = 8080
	defaultWikiPort                   = 443
	defaultDiffSizeLimitBytes         = 1000
	defaultDiffTimeLimitMS            = 500
	defaultMaxConsecutiveDiffTimeouts = 3
	defaultRevisionWindow             = 500
	maxPort                           = 65535
)

// Config is wikiguard's full runtime configuration, matching the
// recognized options: listen_port, wiki_host, wiki_port,
// cache_endpoint, diff_size_limit_bytes, diff_time_limit_ms,
// max_consecutive_diff_timeouts, revision_window.
type Config struct {
	ListenPort int    `mapstructure:"listen_port"`
	WikiHost   string `mapstructure:"wiki_host"`
	WikiPort   int    `mapstructure:"wiki_port"`

	CacheHost string `mapstructure:"cache_host"`
	CachePort int    `mapstructure:"cache_port"`

	DiffSizeLimitBytes         int `mapstructure:"diff_size_limit_bytes"`
	DiffTimeLimitMS            int `mapstructure:"diff_time_limit_ms"`
	MaxConsecutiveDiffTimeouts int `mapstructure:"max_consecutive_diff_timeouts"`
	RevisionWindow             int `mapstructure:"revision_window"`

	Logging LoggingConfig `mapstructure:"logging"`
	OTLP    OTLPConfig    `mapstructure:"otlp"`
}

// LoggingConfig controls internal/observability's logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OTLPConfig controls internal/observability's tracer/meter export.
type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// CacheConfigured reports whether a cache endpoint was supplied.
func (c Config) CacheConfigured() bool {
	return c.CacheHost != ""
}

// Load reads configuration from configPath (if non-empty), then
// WIKIGUARD_-prefixed environment variables, into a Config seeded with
// defaults, and validates the result. v is supplied by the caller so
// that the CLI can bind its flags onto the same Viper instance before
// Load unmarshals it.
func Load(configPath string, v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("wikiguard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/wikiguard")
	}

	v.SetEnvPrefix("WIKIGUARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_port", defaultListenPort)
	v.SetDefault("wiki_port", defaultWikiPort)
	v.SetDefault("diff_size_limit_bytes", defaultDiffSizeLimitBytes)
	v.SetDefault("diff_time_limit_ms", defaultDiffTimeLimitMS)
	v.SetDefault("max_consecutive_diff_timeouts", defaultMaxConsecutiveDiffTimeouts)
	v.SetDefault("revision_window", defaultRevisionWindow)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func validate(cfg *Config) error {
	if cfg.ListenPort <= 0 || cfg.ListenPort > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, cfg.ListenPort)
	}

	if cfg.WikiPort <= 0 || cfg.WikiPort > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidWikiPort, cfg.WikiPort)
	}

	if cfg.DiffSizeLimitBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDiffSizeLimit, cfg.DiffSizeLimitBytes)
	}

	if cfg.DiffTimeLimitMS <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDiffTimeLimit, cfg.DiffTimeLimitMS)
	}

	if cfg.MaxConsecutiveDiffTimeouts <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTimeouts, cfg.MaxConsecutiveDiffTimeouts)
	}

	if cfg.RevisionWindow <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRevisionWindow, cfg.RevisionWindow)
	}

	if cfg.CachePort != 0 && cfg.CacheHost == "" {
		return ErrCachePortWithoutHost
	}

	return nil
}
