package cache

import (
	"context"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}

func TestGet_Missing(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	if _, err := c.Get(context.Background(), "absent"); err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestGet_Expired(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); err != ErrExpired {
		t.Errorf("Get() error = %v, want ErrExpired", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("abc"), 0)
	got, _ := c.Get(ctx, "k")
	got[0] = 'x'

	again, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestIncrement(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, _, err := c.Increment(ctx, "hits", 1, time.Minute)
		if err != nil {
			t.Fatalf("Increment() error: %v", err)
		}
		if got != want {
			t.Errorf("Increment() = %d, want %d", got, want)
		}
	}

	count, err := c.GetCount(ctx, "hits")
	if err != nil {
		t.Fatalf("GetCount() error: %v", err)
	}
	if count != 3 {
		t.Errorf("GetCount() = %d, want 3", count)
	}
}

func TestIncrement_ExpiredCounterRestarts(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	c.Increment(ctx, "hits", 5, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	got, _, err := c.Increment(ctx, "hits", 1, time.Minute)
	if err != nil {
		t.Fatalf("Increment() error: %v", err)
	}
	if got != 1 {
		t.Errorf("Increment() after expiry = %d, want 1", got)
	}
}

func TestReset(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	c.Increment(ctx, "hits", 10, time.Minute)
	if err := c.Reset(ctx, "hits"); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}

	count, _ := c.GetCount(ctx, "hits")
	if count != 0 {
		t.Errorf("GetCount() after reset = %d, want 0", count)
	}
}

func TestClose_Twice(t *testing.T) {
	c := New(time.Minute, time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
}
