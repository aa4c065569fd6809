package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-process TTL cache used to avoid refetching slow upstream
// aggregates. Expiry is checked lazily on read; there is no eviction
// goroutine. The zero TTL case means the entry is already expired on the
// next read.
//
// GetOrCompute deliberately does not single-flight: concurrent callers on a
// cold key may each run the compute function. Every computation in this
// codebase is an idempotent read, so the duplicate work is harmless.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.createdAt.Add(e.ttl))
}

// NewMemory returns a cache reading time from the real clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock injects the clock, so tests can step time across TTL
// boundaries deterministically.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns the payload stored under key, or false when the key is absent
// or its TTL has elapsed. Expired entries are evicted on the spot.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if e.expired(m.now()) {
		m.mu.Lock()
		// Re-check under the write lock; a Set may have raced us.
		if cur, ok := m.entries[key]; ok && cur.createdAt.Equal(e.createdAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

func (m *Memory) Set(key string, value any, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, createdAt: m.now(), ttl: ttl}
	m.mu.Unlock()
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len reports the number of stored entries, expired or not. Used by metrics.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// GetOrCompute returns the cached payload when present and unexpired,
// otherwise runs compute, stores its result under ttl and returns it.
// A compute failure propagates to the caller and stores nothing.
func (m *Memory) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) (any, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}

	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	m.Set(key, v, ttl)
	return v, nil
}
