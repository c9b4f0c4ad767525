package store

import (
	"strings"
	"testing"
)

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(&DriverConfig{Driver: "bolt"})
	if err == nil || !strings.Contains(err.Error(), "unknown driver") {
		t.Errorf("err = %v", err)
	}
}

func TestRegisterAndNew(t *testing.T) {
	called := false
	Register("fake", func(cfg *DriverConfig) (Driver, error) {
		called = true
		return nil, nil
	})
	if _, err := New(&DriverConfig{Driver: "fake"}); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !called {
		t.Error("factory not invoked")
	}
	found := false
	for _, name := range AvailableDrivers() {
		if name == "fake" {
			found = true
		}
	}
	if !found {
		t.Error("registered driver not listed")
	}
}
