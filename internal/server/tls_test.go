package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gatherkit/gatherd/internal/config"
)

func TestGetTLSConfigOff(t *testing.T) {
	m := NewTLSManager(&config.TLSConfig{Mode: "off"}, nil)
	cfg, err := m.GetTLSConfig("localhost")
	if err != nil || cfg != nil {
		t.Errorf("off mode: %v, %v", cfg, err)
	}
}

func TestGetTLSConfigUnknownMode(t *testing.T) {
	m := NewTLSManager(&config.TLSConfig{Mode: "bogus"}, nil)
	if _, err := m.GetTLSConfig("localhost"); !errors.Is(err, ErrInvalidTLSMode) {
		t.Errorf("err = %v", err)
	}
}

func TestStaticModeMissingFiles(t *testing.T) {
	m := NewTLSManager(&config.TLSConfig{Mode: "static"}, nil)
	if _, err := m.GetTLSConfig("localhost"); !errors.Is(err, ErrMissingCert) {
		t.Errorf("err = %v", err)
	}
}

func TestSelfSignedGeneratesAndReloads(t *testing.T) {
	dir := t.TempDir()
	m := NewTLSManager(&config.TLSConfig{Mode: "selfsigned", SelfSignedDir: dir}, nil)

	cfg, err := m.GetTLSConfig("gatherd.test")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Fatalf("certificates = %d", len(cfg.Certificates))
	}

	// second call loads the same cert from disk
	cfg2, err := m.GetTLSConfig("gatherd.test")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(cfg2.Certificates) != 1 {
		t.Fatal("no certificate on reload")
	}

	for _, name := range []string{"server.crt", "server.key"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

// TestStaticModeLoadsGeneratedCert reuses the selfsigned generator output as
// a static cert pair.
func TestStaticModeLoadsGeneratedCert(t *testing.T) {
	dir := t.TempDir()
	gen := NewTLSManager(&config.TLSConfig{Mode: "selfsigned", SelfSignedDir: dir}, nil)
	if _, err := gen.GetTLSConfig("gatherd.test"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	m := NewTLSManager(&config.TLSConfig{
		Mode:     "static",
		CertFile: filepath.Join(dir, "server.crt"),
		KeyFile:  filepath.Join(dir, "server.key"),
	}, nil)
	cfg, err := m.GetTLSConfig("gatherd.test")
	if err != nil {
		t.Fatalf("static load: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Error("no certificate loaded")
	}
}
