// Package cache provides TTL read-through caches for lookups the decision
// engine performs on every accepted match. Staleness is bounded only by the
// TTL; there is no write-triggered invalidation.
package cache

import (
	"context"
	"sync"
	"time"
)

// FetchFunc loads a fresh value from the backing store.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Value is a single-entry TTL read-through cache. On read, an expired entry
// is refreshed synchronously; a failed refresh falls back to the previous
// value (or the configured fallback before the first successful fetch)
// rather than propagating the error.
type Value[T any] struct {
	ttl      time.Duration
	fetch    FetchFunc[T]
	fallback T

	mu      sync.Mutex
	val     T
	fetched bool
	last    time.Time
	now     func() time.Time
}

// NewValue creates a single-value cache.
func NewValue[T any](ttl time.Duration, fallback T, fetch FetchFunc[T]) *Value[T] {
	return &Value[T]{
		ttl:      ttl,
		fetch:    fetch,
		fallback: fallback,
		now:      time.Now,
	}
}

// Get returns the cached value, refreshing it first when the TTL has passed.
func (v *Value[T]) Get(ctx context.Context) T {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.fetched && v.now().Sub(v.last) <= v.ttl {
		return v.val
	}

	fresh, err := v.fetch(ctx)
	if err != nil {
		if v.fetched {
			return v.val
		}
		return v.fallback
	}

	v.val = fresh
	v.fetched = true
	v.last = v.now()
	return v.val
}

// KeyedFetchFunc loads a fresh value for one key from the backing store.
type KeyedFetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

type keyedEntry[V any] struct {
	val  V
	last time.Time
}

// Map is a keyed TTL read-through cache guarded by one mutex. Read-modify-
// write sequences hold the lock for the whole check-then-set.
type Map[K comparable, V any] struct {
	ttl   time.Duration
	fetch KeyedFetchFunc[K, V]

	mu      sync.Mutex
	entries map[K]keyedEntry[V]
	now     func() time.Time
}

// NewMap creates a keyed cache.
func NewMap[K comparable, V any](ttl time.Duration, fetch KeyedFetchFunc[K, V]) *Map[K, V] {
	return &Map[K, V]{
		ttl:     ttl,
		fetch:   fetch,
		entries: make(map[K]keyedEntry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key, refreshing it first when absent or
// past the TTL. A failed refresh returns the stale value when one exists.
func (m *Map[K, V]) Get(ctx context.Context, key K) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if ok && m.now().Sub(entry.last) <= m.ttl {
		return entry.val, nil
	}

	fresh, err := m.fetch(ctx, key)
	if err != nil {
		if ok {
			return entry.val, nil
		}
		var zero V
		return zero, err
	}

	m.entries[key] = keyedEntry[V]{val: fresh, last: m.now()}
	return fresh, nil
}

// Len returns the number of cached keys.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
