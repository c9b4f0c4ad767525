package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but missing or invalid, loading fails.
	ConfigPath string

	// FlagOverrides are CLI flag values that override file and env values.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values. Nil or empty values are unset.
type FlagOverrides struct {
	ListenAddr   *string
	PublicOrigin *string
	StoreDriver  *string
	NotifyDriver *string
	TLSMode      *string
	LogLevel     *string
}

// Load builds the effective configuration.
// Precedence, lowest to highest: defaults, TOML file, environment, flags.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := defaults()

	if opts.ConfigPath != "" {
		meta, err := toml.DecodeFile(opts.ConfigPath, cfg)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", opts.ConfigPath)
			}
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
		for _, key := range meta.Undecoded() {
			logger.Warn("unknown config key", "key", key.String(), "file", opts.ConfigPath)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	applyFlags(cfg, opts.FlagOverrides)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ListenAddr:   ":8080",
		PublicOrigin: "http://localhost:8080",
		Auth: AuthConfig{
			TokenTTL: Duration(24 * time.Hour),
		},
		Store: StoreConfig{
			Driver:  "memory",
			DataDir: ".gatherd",
		},
		Notify: NotifyConfig{
			Driver: "log",
			From:   "no-reply@localhost",
		},
		TLS: TLSConfig{
			Mode: "off",
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 60,
			Window:            Duration(time.Minute),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyFlags(cfg *Config, f FlagOverrides) {
	set := func(dst *string, src *string) {
		if src != nil && *src != "" {
			*dst = *src
		}
	}
	set(&cfg.ListenAddr, f.ListenAddr)
	set(&cfg.PublicOrigin, f.PublicOrigin)
	set(&cfg.Store.Driver, f.StoreDriver)
	set(&cfg.Notify.Driver, f.NotifyDriver)
	set(&cfg.TLS.Mode, f.TLSMode)
	set(&cfg.Logging.Level, f.LogLevel)
}
