package stats

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"usfconnect.africa/internal/cache"
)

type fakeCounter struct {
	mu         sync.Mutex
	counts     map[string]int64
	failTables map[string]error
	calls      int32
	cutoffs    map[string]time.Time
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{
		counts: map[string]int64{
			"countries":   54,
			"projects":    120,
			"partners":    33,
			"events":      18,
			"documents":   240,
			"discussions": 87,
			"members":     410,
		},
		failTables: map[string]error{},
		cutoffs:    map[string]time.Time{},
	}
}

func (f *fakeCounter) Count(ctx context.Context, entity string) (int64, error) {
	atomic.AddInt32(&f.calls, 1)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failTables[entity]; ok {
		return 0, err
	}
	return f.counts[entity], nil
}

func (f *fakeCounter) CountSince(ctx context.Context, entity, field string, cutoff time.Time) (int64, error) {
	atomic.AddInt32(&f.calls, 1)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	f.cutoffs[entity+"."+field] = cutoff
	err, failing := f.failTables[entity]
	f.mu.Unlock()
	if failing {
		return 0, err
	}
	// Windowed counts return a fixed fraction for the test.
	return 7, nil
}

func newTestService(t *testing.T, counter Counter, clock func() time.Time) *Service {
	t.Helper()
	svc, err := NewService(counter,
		WithClock(clock),
		WithCache(cache.New(DefaultTTL, cache.WithClock(clock))),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestHomeSnapshotMetrics(t *testing.T) {
	counter := newFakeCounter()
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, counter, func() time.Time { return now })

	snap, err := svc.Home(context.Background())
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if len(snap.Metrics) != len(HomeEntities) {
		t.Fatalf("expected %d metrics, got %d", len(HomeEntities), len(snap.Metrics))
	}
	if snap.Metrics["countries"] != 54 || snap.Metrics["projects"] != 120 {
		t.Fatalf("unexpected totals: %v", snap.Metrics)
	}
	if snap.Metrics["projects_this_quarter"] != 7 {
		t.Fatalf("unexpected windowed metric: %v", snap.Metrics)
	}
	if !snap.RefreshedAt.Equal(now) {
		t.Fatalf("RefreshedAt=%v, want %v", snap.RefreshedAt, now)
	}
}

func TestSnapshotDegradesFailedEntityToZero(t *testing.T) {
	counter := newFakeCounter()
	counter.failTables["partners"] = errors.New("connection refused")
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, counter, func() time.Time { return now })

	snap, err := svc.Home(context.Background())
	if err != nil {
		t.Fatalf("a single failing entity must not fail the snapshot: %v", err)
	}
	if snap.Metrics["partners"] != 0 {
		t.Fatalf("failed entity must degrade to 0, got %d", snap.Metrics["partners"])
	}
	if snap.Metrics["countries"] != 54 || snap.Metrics["events"] != 18 {
		t.Fatalf("healthy entities must keep their counts: %v", snap.Metrics)
	}
}

func TestSnapshotCachedWithinTTL(t *testing.T) {
	counter := newFakeCounter()
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := newTestService(t, counter, clock)

	if _, err := svc.Home(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := atomic.LoadInt32(&counter.calls)
	if first != int32(len(HomeEntities)) {
		t.Fatalf("expected %d queries for the first snapshot, got %d", len(HomeEntities), first)
	}

	if _, err := svc.Home(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&counter.calls); got != first {
		t.Fatalf("second call within TTL must not re-query: %d -> %d", first, got)
	}
}

func TestSnapshotRefreshesAfterTTL(t *testing.T) {
	counter := newFakeCounter()
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	svc := newTestService(t, counter, clock)

	if _, err := svc.Home(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := atomic.LoadInt32(&counter.calls)

	mu.Lock()
	now = now.Add(DefaultTTL + time.Second)
	mu.Unlock()

	if _, err := svc.Home(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&counter.calls); got != 2*first {
		t.Fatalf("stale snapshot must trigger one full re-query: %d -> %d", first, got)
	}
}

func TestRefreshOutlivesCancelledCaller(t *testing.T) {
	counter := newFakeCounter()
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, counter, func() time.Time { return now })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := svc.Home(ctx)
	if err != nil {
		t.Fatalf("Home under cancelled caller: %v", err)
	}
	if snap.Metrics["projects"] != 120 || snap.Metrics["countries"] != 54 {
		t.Fatalf("cancelled caller must not zero the shared snapshot: %v", snap.Metrics)
	}

	first := atomic.LoadInt32(&counter.calls)
	snap, err = svc.Home(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Metrics["projects"] != 120 {
		t.Fatalf("later caller served a degraded snapshot: %v", snap.Metrics)
	}
	if got := atomic.LoadInt32(&counter.calls); got != first {
		t.Fatalf("healthy snapshot must be cached: %d -> %d queries", first, got)
	}
}

func TestAllFailedSnapshotNotCached(t *testing.T) {
	counter := newFakeCounter()
	down := errors.New("connection refused")
	counter.mu.Lock()
	for _, entity := range HomeEntities {
		counter.failTables[entity.Table] = down
	}
	counter.mu.Unlock()
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, counter, func() time.Time { return now })

	if _, err := svc.Home(context.Background()); err == nil {
		t.Fatal("a snapshot where every count failed must be an error")
	}

	counter.mu.Lock()
	counter.failTables = map[string]error{}
	counter.mu.Unlock()

	snap, err := svc.Home(context.Background())
	if err != nil {
		t.Fatalf("Home after backend recovery: %v", err)
	}
	if snap.Metrics["projects"] != 120 {
		t.Fatalf("recovered snapshot must re-query, got %v", snap.Metrics)
	}
}

func TestWindowCutoffs(t *testing.T) {
	counter := newFakeCounter()
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, counter, func() time.Time { return now })

	if _, err := svc.Advanced(context.Background()); err != nil {
		t.Fatal(err)
	}

	counter.mu.Lock()
	defer counter.mu.Unlock()
	if cutoff := counter.cutoffs["projects.created_at"]; !cutoff.Equal(now.Add(-WindowQuarter)) {
		t.Fatalf("quarter cutoff %v, want %v", cutoff, now.Add(-WindowQuarter))
	}
	if cutoff := counter.cutoffs["members.created_at"]; !cutoff.Equal(now.Add(-WindowYear)) {
		t.Fatalf("year cutoff %v, want %v", cutoff, now.Add(-WindowYear))
	}
	if cutoff := counter.cutoffs["events.starts_at"]; !cutoff.Equal(now.Add(-WindowMonth)) {
		t.Fatalf("month cutoff %v, want %v", cutoff, now.Add(-WindowMonth))
	}
}

func TestHomeAndAdvancedUseDistinctCacheKeys(t *testing.T) {
	counter := newFakeCounter()
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, counter, func() time.Time { return now })

	home, err := svc.Home(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	advanced, err := svc.Advanced(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(advanced.Metrics) <= len(home.Metrics) {
		t.Fatalf("advanced snapshot must track more metrics than home: %d vs %d",
			len(advanced.Metrics), len(home.Metrics))
	}
	if _, ok := advanced.Metrics["documents"]; !ok {
		t.Fatalf("advanced snapshot missing documents: %v", advanced.Metrics)
	}
}
