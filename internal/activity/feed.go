package activity

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"usfconnect.africa/internal/obs"
)

// DefaultMaxItems bounds the feed when the caller does not specify a limit.
const DefaultMaxItems = 6

// MaxItemsCeiling is the largest feed a caller may request.
const MaxItemsCeiling = 50

// DefaultTimeout bounds one feed refresh against a hung backend.
const DefaultTimeout = 15 * time.Second

// Source fetches the most recent rows per entity type, newest first, at most
// limit rows each. One method per type keeps the normalizer exhaustive.
type Source interface {
	RecentProjects(ctx context.Context, limit int) ([]ProjectRow, error)
	RecentDocuments(ctx context.Context, limit int) ([]DocumentRow, error)
	RecentEvents(ctx context.Context, limit int) ([]EventRow, error)
	RecentDiscussions(ctx context.Context, limit int) ([]DiscussionRow, error)
}

// State is the externally visible feed state.
type State struct {
	Activities []Item `json:"activities"`
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// Feed loads and merges the activity sources. Superseded refreshes are
// discarded via a generation counter: a result only lands if no newer
// refresh has started and Cancel has not been called since.
type Feed struct {
	source  Source
	max     int
	timeout time.Duration

	mu       sync.Mutex
	gen      uint64
	inflight int
	state    State
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithMaxItems sets the feed bound, clamped to [1, MaxItemsCeiling].
func WithMaxItems(n int) FeedOption {
	return func(f *Feed) {
		if n > 0 {
			f.max = min(n, MaxItemsCeiling)
		}
	}
}

// WithTimeout overrides the per-refresh deadline.
func WithTimeout(d time.Duration) FeedOption {
	return func(f *Feed) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFeed constructs a feed over the given source.
func NewFeed(source Source, opts ...FeedOption) (*Feed, error) {
	if source == nil {
		return nil, errors.New("activity: source is required")
	}
	f := &Feed{
		source:  source,
		max:     DefaultMaxItems,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// State returns a copy of the current feed state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// SetMaxItems changes the feed bound and invalidates any in-flight refresh,
// mirroring a dependency change re-entering the loading state.
func (f *Feed) SetMaxItems(n int) {
	if n <= 0 {
		return
	}
	f.mu.Lock()
	f.max = min(n, MaxItemsCeiling)
	f.gen++
	f.mu.Unlock()
}

// Cancel discards the result of any in-flight refresh. Pending fetches still
// run to completion but their state mutation is suppressed.
func (f *Feed) Cancel() {
	f.mu.Lock()
	f.gen++
	f.mu.Unlock()
}

// Refresh fetches all sources, merges them newest-first, and truncates to the
// configured bound. The returned state reflects this refresh unless it was
// superseded, in which case the current state is returned unchanged.
func (f *Feed) Refresh(ctx context.Context) State {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	max := f.max
	f.inflight++
	f.state.Loading = true
	f.state.Error = ""
	f.mu.Unlock()

	items, err := f.fetch(ctx, max)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	if gen != f.gen {
		// A newer refresh (or Cancel) superseded this one; discard the
		// result. Loading stays up only while a newer refresh is in flight.
		f.state.Loading = f.inflight > 0
		return f.snapshotLocked()
	}
	f.state.Loading = false
	if err != nil {
		f.state.Activities = []Item{}
		f.state.Error = err.Error()
		f.state.HasMore = false
		return f.snapshotLocked()
	}
	f.state.Activities = items
	f.state.Error = ""
	f.state.HasMore = len(items) == max
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() State {
	out := f.state
	out.Activities = append([]Item(nil), f.state.Activities...)
	return out
}

// fetch gathers every source. A single failing source degrades to no rows;
// only the total failure of all sources surfaces as an error.
func (f *Feed) fetch(ctx context.Context, max int) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var (
		items  []Item
		failed int
		total  = 4
	)

	projects, err := f.source.RecentProjects(ctx, max)
	if err != nil {
		failed++
		logSourceFailure("projects", err)
	}
	for _, row := range projects {
		items = append(items, row.item())
	}

	documents, err := f.source.RecentDocuments(ctx, max)
	if err != nil {
		failed++
		logSourceFailure("documents", err)
	}
	for _, row := range documents {
		items = append(items, row.item())
	}

	events, err := f.source.RecentEvents(ctx, max)
	if err != nil {
		failed++
		logSourceFailure("events", err)
	}
	for _, row := range events {
		items = append(items, row.item())
	}

	discussions, err := f.source.RecentDiscussions(ctx, max)
	if err != nil {
		failed++
		logSourceFailure("discussions", err)
	}
	for _, row := range discussions {
		items = append(items, row.item())
	}

	if failed == total {
		return nil, errors.New("activity feed unavailable")
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if len(items) > max {
		items = items[:max]
	}
	return items, nil
}

func logSourceFailure(source string, err error) {
	obs.ObserveFeedFailure(source)
	obs.LogEvent("warn", "activity source degraded to empty", map[string]any{
		"source": source,
		"error":  err.Error(),
	})
}
