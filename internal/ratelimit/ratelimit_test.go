package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherkit/gatherd/internal/cache"
)

func newLimiter(t *testing.T, quota int64) *Limiter {
	t.Helper()
	c := cache.New(time.Minute, 0)
	t.Cleanup(func() { c.Close() })
	return New(c, &Config{
		RequestsPerWindow: quota,
		Window:            time.Minute,
		KeyPrefix:         "test:",
	})
}

func TestAllow_WithinQuota(t *testing.T) {
	l := newLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := l.Allow(ctx, "client")
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !result.Allowed {
			t.Errorf("request %d not allowed, want allowed", i+1)
		}
	}

	result, _ := l.Allow(ctx, "client")
	if result.Allowed {
		t.Error("request over quota allowed, want denied")
	}
	if result.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", result.Remaining)
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := newLimiter(t, 1)
	ctx := context.Background()

	l.Allow(ctx, "a")
	result, _ := l.Allow(ctx, "b")
	if !result.Allowed {
		t.Error("key b denied after key a spent its quota")
	}
}

func TestReset(t *testing.T) {
	l := newLimiter(t, 1)
	ctx := context.Background()

	l.Allow(ctx, "client")
	if result, _ := l.Allow(ctx, "client"); result.Allowed {
		t.Fatal("expected denial before reset")
	}

	if err := l.Reset(ctx, "client"); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if result, _ := l.Allow(ctx, "client"); !result.Allowed {
		t.Error("expected allowance after reset")
	}
}

func TestKeyFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"remote addr", "10.0.0.1:5000", "", "10.0.0.1"},
		{"forwarded single", "10.0.0.1:5000", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain", "10.0.0.1:5000", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := KeyFromRequest(r); got != tt.want {
				t.Errorf("KeyFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_Denies(t *testing.T) {
	l := newLimiter(t, 1)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, wantCode := range []int{http.StatusOK, http.StatusTooManyRequests} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != wantCode {
			t.Errorf("request %d: code = %d, want %d", i+1, w.Code, wantCode)
		}
	}
}
