// Package cache provides a process-local TTL cache for computed snapshots.
// It is a best-effort acceleration layer: dropping every entry at any moment
// costs latency only, never correctness.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock supplies the current time. Injected so TTL behavior is testable
// without sleeping.
type Clock func() time.Time

// Loader computes a fresh value for a cache key.
type Loader func(ctx context.Context) (any, error)

// Observer receives lookup outcomes ("hit", "stale", "miss") per key.
type Observer func(key, result string)

type entry struct {
	value     any
	fetchedAt time.Time
}

// Store is a string-keyed TTL cache with de-duplicated refreshes: once an
// entry goes stale, exactly one caller rebuilds it while concurrent callers
// wait for that in-flight result. Writes are last-write-wins.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     Clock
	observe Observer
	group   singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock.
func WithClock(now Clock) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver installs a lookup-outcome callback.
func WithObserver(observe Observer) Option {
	return func(s *Store) {
		if observe != nil {
			s.observe = observe
		}
	}
}

// New constructs a Store with the given time-to-live.
func New(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		observe: func(string, string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrRefresh returns the cached value for key when it is still within the
// TTL; otherwise it runs load exactly once across concurrent callers and
// caches the result. The returned time is when the value was computed.
func (s *Store) GetOrRefresh(ctx context.Context, key string, load Loader) (any, time.Time, error) {
	if value, fetchedAt, ok := s.fresh(key); ok {
		s.observe(key, "hit")
		return value, fetchedAt, nil
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		// Another caller may have refreshed the key while this one waited
		// on the flight lock.
		if value, fetchedAt, ok := s.fresh(key); ok {
			return entry{value: value, fetchedAt: fetchedAt}, nil
		}
		if _, _, ok := s.Peek(key); ok {
			s.observe(key, "stale")
		} else {
			s.observe(key, "miss")
		}

		value, err := load(ctx)
		if err != nil {
			return entry{}, err
		}
		e := entry{value: value, fetchedAt: s.now()}
		s.mu.Lock()
		s.entries[key] = e
		s.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	e := result.(entry)
	return e.value, e.fetchedAt, nil
}

// Peek returns the cached value regardless of freshness.
func (s *Store) Peek(key string) (any, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	return e.value, e.fetchedAt, true
}

// Invalidate drops a single key.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Purge drops every entry.
func (s *Store) Purge() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

func (s *Store) fresh(key string) (any, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	if s.now().Sub(e.fetchedAt) >= s.ttl {
		return nil, time.Time{}, false
	}
	return e.value, e.fetchedAt, true
}
