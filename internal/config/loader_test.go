package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatherd.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoaderOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Store.Driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.Auth.TokenTTL.Std() != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.Auth.TokenTTL.Std())
	}
	if cfg.TLS.Mode != "off" {
		t.Errorf("TLS.Mode = %q, want off", cfg.TLS.Mode)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
listen_addr = ":9000"
public_origin = "https://events.example.com"

[store]
driver = "sqlite"
data_dir = "/tmp/gatherd-test"

[auth]
token_ttl = "2h"

[logging]
level = "debug"
`)

	cfg, err := Load(LoaderOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000", cfg.ListenAddr)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Auth.TokenTTL.Std() != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.Auth.TokenTTL.Std())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `listen_addr = ":9000"`)

	addr := ":9100"
	cfg, err := Load(LoaderOptions{
		ConfigPath:    path,
		FlagOverrides: FlagOverrides{ListenAddr: &addr},
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":9100" {
		t.Errorf("ListenAddr = %q, want :9100", cfg.ListenAddr)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `listen_addr = ":9000"`)
	t.Setenv("GATHERD_LISTEN_ADDR", ":9200")

	cfg, err := Load(LoaderOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":9200" {
		t.Errorf("ListenAddr = %q, want :9200", cfg.ListenAddr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(LoaderOptions{ConfigPath: "/nonexistent/gatherd.toml"})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	path := writeConfig(t, `
[store]
driver = "postgres"
`)
	if _, err := Load(LoaderOptions{ConfigPath: path}); err == nil {
		t.Fatal("expected error for invalid store driver")
	}
}

func TestLoad_StaticTLSRequiresCertFiles(t *testing.T) {
	path := writeConfig(t, `
[tls]
mode = "static"
`)
	if _, err := Load(LoaderOptions{ConfigPath: path}); err == nil {
		t.Fatal("expected error for static TLS without cert files")
	}
}

func TestValidate_PublicOriginWithPath(t *testing.T) {
	cfg := defaults()
	cfg.PublicOrigin = "https://example.com/app"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for public_origin with path")
	}
}

func TestRedacted_HidesSecret(t *testing.T) {
	cfg := defaults()
	cfg.Auth.JWTSecret = "super-secret"
	red := cfg.Redacted()
	auth := red["auth"].(map[string]any)
	if auth["jwt_secret"] != "[redacted]" {
		t.Errorf("jwt_secret = %v, want [redacted]", auth["jwt_secret"])
	}
}
