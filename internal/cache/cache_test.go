package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock lets tests advance time deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestValueReadThrough(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	fetches := 0
	current := "v1"

	v := NewValue(time.Minute, "fallback", func(ctx context.Context) (string, error) {
		fetches++
		return current, nil
	})
	v.now = clock.now

	ctx := context.Background()

	if got := v.Get(ctx); got != "v1" {
		t.Fatalf("expected v1, got %q", got)
	}
	if fetches != 1 {
		t.Fatalf("expected 1 fetch, got %d", fetches)
	}

	// Backing store changes; a read before expiry still returns the cached value.
	current = "v2"
	clock.advance(30 * time.Second)
	if got := v.Get(ctx); got != "v1" {
		t.Errorf("expected cached v1 before expiry, got %q", got)
	}
	if fetches != 1 {
		t.Errorf("expected no re-fetch before expiry, got %d fetches", fetches)
	}

	// A read immediately after expiry triggers exactly one re-fetch.
	clock.advance(31 * time.Second)
	if got := v.Get(ctx); got != "v2" {
		t.Errorf("expected refreshed v2 after expiry, got %q", got)
	}
	if fetches != 2 {
		t.Errorf("expected exactly 2 fetches, got %d", fetches)
	}
}

func TestValueFallbackOnError(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	fail := true

	v := NewValue(time.Minute, "UTC", func(ctx context.Context) (string, error) {
		if fail {
			return "", errors.New("store down")
		}
		return "Europe/Prague", nil
	})
	v.now = clock.now

	ctx := context.Background()

	// First fetch fails: fallback, never an error.
	if got := v.Get(ctx); got != "UTC" {
		t.Errorf("expected fallback UTC, got %q", got)
	}

	// Store recovers.
	fail = false
	if got := v.Get(ctx); got != "Europe/Prague" {
		t.Errorf("expected refreshed value, got %q", got)
	}

	// Store fails again after expiry: the stale value is returned.
	fail = true
	clock.advance(2 * time.Minute)
	if got := v.Get(ctx); got != "Europe/Prague" {
		t.Errorf("expected stale value on refresh failure, got %q", got)
	}
}

func TestMapReadThrough(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	fetches := map[string]int{}
	values := map[string]int{"a": 1, "b": 2}

	m := NewMap(time.Minute, func(ctx context.Context, key string) (int, error) {
		fetches[key]++
		return values[key], nil
	})
	m.now = clock.now

	ctx := context.Background()

	if got, err := m.Get(ctx, "a"); err != nil || got != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, nil", got, err)
	}
	if got, err := m.Get(ctx, "b"); err != nil || got != 2 {
		t.Fatalf("Get(b) = %d, %v; want 2, nil", got, err)
	}

	// Cached reads do not hit the store.
	values["a"] = 100
	if got, _ := m.Get(ctx, "a"); got != 1 {
		t.Errorf("expected cached 1, got %d", got)
	}
	if fetches["a"] != 1 {
		t.Errorf("expected 1 fetch for a, got %d", fetches["a"])
	}

	// Expiry refreshes per key.
	clock.advance(2 * time.Minute)
	if got, _ := m.Get(ctx, "a"); got != 100 {
		t.Errorf("expected refreshed 100, got %d", got)
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 cached keys, got %d", m.Len())
	}
}

func TestMapErrorWithoutStaleValue(t *testing.T) {
	m := NewMap(time.Minute, func(ctx context.Context, key string) (int, error) {
		return 0, errors.New("store down")
	})

	if _, err := m.Get(context.Background(), "missing"); err == nil {
		t.Error("expected error when no stale value exists")
	}
}
