// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the address to listen on, e.g. ":8080".
	ListenAddr string `toml:"listen_addr" env:"GATHERD_LISTEN_ADDR"`

	// PublicOrigin is the public origin (scheme + host + port) used to
	// build RSVP and verification links. Example: "https://events.example.com"
	PublicOrigin string `toml:"public_origin" env:"GATHERD_PUBLIC_ORIGIN"`

	// Auth holds token signing settings.
	Auth AuthConfig `toml:"auth" envPrefix:"GATHERD_AUTH_"`

	// Store holds persistence settings.
	Store StoreConfig `toml:"store" envPrefix:"GATHERD_STORE_"`

	// Notify holds notification dispatch settings.
	Notify NotifyConfig `toml:"notify" envPrefix:"GATHERD_NOTIFY_"`

	// TLS holds TLS settings.
	TLS TLSConfig `toml:"tls" envPrefix:"GATHERD_TLS_"`

	// RateLimit holds rate limiting settings for public endpoints.
	RateLimit RateLimitConfig `toml:"ratelimit"`

	// Logging holds logging settings.
	Logging LoggingConfig `toml:"logging" envPrefix:"GATHERD_LOG_"`
}

// AuthConfig holds API token settings.
type AuthConfig struct {
	// JWTSecret signs bearer tokens (HS256). When empty a random
	// per-process secret is generated and sessions do not survive restarts.
	JWTSecret string `toml:"jwt_secret" env:"JWT_SECRET"`

	// TokenTTL is the bearer token lifetime. Default: 24h.
	TokenTTL Duration `toml:"token_ttl" env:"TOKEN_TTL"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Driver selects the persistence backend: "memory" (default) or "sqlite".
	Driver string `toml:"driver" env:"DRIVER"`

	// DataDir is the directory for on-disk drivers. Default: ".gatherd".
	DataDir string `toml:"data_dir" env:"DATA_DIR"`
}

// NotifyConfig holds notification dispatch settings.
type NotifyConfig struct {
	// Driver selects the dispatch backend: "log" (default) or "smtp".
	Driver string `toml:"driver" env:"DRIVER"`

	// From is the sender address for outgoing mail.
	From string `toml:"from" env:"FROM"`

	// Drivers holds per-driver configuration, decoded by the selected
	// driver. Example: [notify.drivers.smtp] host = "smtp.example.com"
	Drivers map[string]map[string]any `toml:"drivers"`
}

// TLSConfig holds TLS settings.
type TLSConfig struct {
	// Mode is one of: off, static, selfsigned, acme. Default: off.
	Mode string `toml:"mode" env:"MODE"`

	// CertFile/KeyFile are used in static mode.
	CertFile string `toml:"cert_file" env:"CERT_FILE"`
	KeyFile  string `toml:"key_file" env:"KEY_FILE"`

	// SelfSignedDir stores generated certificates in selfsigned mode.
	SelfSignedDir string `toml:"selfsigned_dir"`

	// HTTPPort/HTTPSPort are used in acme mode (challenge and app listeners).
	HTTPPort  int `toml:"http_port"`
	HTTPSPort int `toml:"https_port"`

	// ACME holds ACME account settings.
	ACME ACMEConfig `toml:"acme"`
}

// ACMEConfig holds ACME certificate settings.
type ACMEConfig struct {
	Domain     string `toml:"domain"`
	Email      string `toml:"email"`
	StorageDir string `toml:"storage_dir"`
	Directory  string `toml:"directory"`
	UseStaging bool   `toml:"use_staging"`
}

// RateLimitConfig holds rate limiting settings for unauthenticated endpoints.
type RateLimitConfig struct {
	// RequestsPerWindow is the per-client quota. 0 disables rate limiting.
	RequestsPerWindow int64 `toml:"requests_per_window"`

	// Window is the quota window. Default: 1m.
	Window Duration `toml:"window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" env:"LEVEL"`
}

// Duration is a time.Duration that decodes from TOML strings ("30s", "1h")
// and from env vars.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.PublicOrigin != "" {
		u, err := url.Parse(c.PublicOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("public_origin must be a full origin (scheme://host[:port]), got %q", c.PublicOrigin)
		}
		if u.Path != "" && u.Path != "/" {
			return fmt.Errorf("public_origin must not contain a path, got %q", c.PublicOrigin)
		}
	}

	switch c.Store.Driver {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("store.driver must be memory or sqlite, got %q", c.Store.Driver)
	}

	switch c.Notify.Driver {
	case "", "log", "smtp":
	default:
		return fmt.Errorf("notify.driver must be log or smtp, got %q", c.Notify.Driver)
	}

	switch c.TLS.Mode {
	case "", "off", "static", "selfsigned", "acme":
	default:
		return fmt.Errorf("tls.mode must be off, static, selfsigned, or acme, got %q", c.TLS.Mode)
	}
	if c.TLS.Mode == "static" && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return fmt.Errorf("tls.mode=static requires cert_file and key_file")
	}
	if c.TLS.Mode == "acme" {
		if c.TLS.ACME.Domain == "" || c.TLS.ACME.Email == "" {
			return fmt.Errorf("tls.mode=acme requires acme.domain and acme.email")
		}
		if c.TLS.HTTPPort == 0 || c.TLS.HTTPSPort == 0 {
			return fmt.Errorf("tls.mode=acme requires http_port and https_port")
		}
	}

	return nil
}

// Hostname derives the TLS hostname from PublicOrigin.
func (c *Config) Hostname() string {
	u, err := url.Parse(c.PublicOrigin)
	if err != nil || u.Hostname() == "" {
		return "localhost"
	}
	return u.Hostname()
}

// Redacted returns a loggable summary with secrets replaced.
func (c *Config) Redacted() map[string]any {
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "[redacted]"
	}
	return map[string]any{
		"listen_addr":   c.ListenAddr,
		"public_origin": c.PublicOrigin,
		"auth": map[string]any{
			"jwt_secret": redact(c.Auth.JWTSecret),
			"token_ttl":  c.Auth.TokenTTL.Std().String(),
		},
		"store": map[string]any{
			"driver":   c.Store.Driver,
			"data_dir": c.Store.DataDir,
		},
		"notify": map[string]any{
			"driver": c.Notify.Driver,
			"from":   c.Notify.From,
		},
		"tls": map[string]any{
			"mode": c.TLS.Mode,
		},
		"logging": map[string]any{
			"level": c.Logging.Level,
		},
	}
}

// normalize trims fields that are compared against enums.
func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Notify.Driver = strings.ToLower(strings.TrimSpace(c.Notify.Driver))
	c.TLS.Mode = strings.ToLower(strings.TrimSpace(c.TLS.Mode))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}
