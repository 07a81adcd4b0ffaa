package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"usfconnect.africa/internal/cache"
	"usfconnect.africa/internal/obs"
)

// DefaultTimeout bounds one snapshot refresh. A hung backend degrades to the
// zero path instead of holding callers forever.
const DefaultTimeout = 15 * time.Second

// DefaultTTL is how long a computed snapshot stays fresh.
const DefaultTTL = 5 * time.Minute

// Service produces cached aggregate snapshots over a Counter.
type Service struct {
	counter Counter
	cache   *cache.Store
	now     func() time.Time
	timeout time.Duration
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the wall clock used for window cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTimeout overrides the per-refresh deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCache replaces the snapshot cache, typically to shorten the TTL in tests.
func WithCache(store *cache.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.cache = store
		}
	}
}

// NewService constructs a snapshot service over the given counter.
func NewService(counter Counter, opts ...Option) (*Service, error) {
	if counter == nil {
		return nil, errors.New("stats: counter is required")
	}
	s := &Service{
		counter: counter,
		now:     time.Now,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.New(DefaultTTL, cache.WithObserver(obs.ObserveCacheRequest))
	}
	return s, nil
}

// Home returns the landing-page snapshot, cached under KeyHome.
func (s *Service) Home(ctx context.Context) (Snapshot, error) {
	return s.snapshot(ctx, KeyHome, HomeEntities)
}

// Advanced returns the dashboard snapshot, cached under KeyAdvanced.
func (s *Service) Advanced(ctx context.Context) (Snapshot, error) {
	return s.snapshot(ctx, KeyAdvanced, AdvancedEntities)
}

func (s *Service) snapshot(ctx context.Context, key string, entities []Entity) (Snapshot, error) {
	value, _, err := s.cache.GetOrRefresh(ctx, key, func(ctx context.Context) (any, error) {
		obs.ObserveSnapshotRefresh(key)
		// The refreshed snapshot is shared through the cache, so the refresh
		// must outlive the caller that happened to trigger it: a client
		// disconnect mid-refresh would otherwise fail every count and cache
		// an all-zero snapshot for the full TTL. Only the service timeout
		// bounds the collection.
		return s.collect(context.WithoutCancel(ctx), entities)
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("stats: refresh %s: %w", key, err)
	}
	snap, ok := value.(Snapshot)
	if !ok {
		return Snapshot{}, fmt.Errorf("stats: unexpected cache payload for %s", key)
	}
	return snap, nil
}

// collect fans one count query per entity out concurrently and joins them.
// A failed query degrades that metric to zero. Only the total failure of
// every entity is an error, so a dead backend is reported instead of cached
// as an all-zero snapshot.
func (s *Service) collect(ctx context.Context, entities []Entity) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()

	var (
		mu      sync.Mutex
		failed  int
		metrics = make(map[string]int64, len(entities))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, entity := range entities {
		entity := entity
		g.Go(func() error {
			count, err := s.count(ctx, entity, now)
			if err != nil {
				obs.ObserveCountFailure(entity.Metric)
				obs.LogEvent("warn", "entity count degraded to zero", map[string]any{
					"entity": entity.Table,
					"metric": entity.Metric,
					"error":  err.Error(),
				})
				count = 0
			}
			mu.Lock()
			if err != nil {
				failed++
			}
			metrics[entity.Metric] = count
			mu.Unlock()
			return nil
		})
	}
	// Goroutines absorb their own failures, so the join never errors.
	_ = g.Wait()

	if failed == len(entities) {
		return Snapshot{}, errors.New("every entity count failed")
	}
	return Snapshot{Metrics: metrics, RefreshedAt: now}, nil
}

func (s *Service) count(ctx context.Context, entity Entity, now time.Time) (int64, error) {
	if entity.Window > 0 {
		return s.counter.CountSince(ctx, entity.Table, entity.Field, now.Add(-entity.Window))
	}
	return s.counter.Count(ctx, entity.Table)
}
