// Package stats computes aggregate portal metrics: per-entity row counts,
// time-windowed deltas, and cached snapshots combining them.
package stats

import (
	"context"
	"time"
)

// Counter is the head-only count surface the backing store must honor: row
// counts without row payloads, optionally filtered on one timestamp column.
type Counter interface {
	Count(ctx context.Context, entity string) (int64, error)
	CountSince(ctx context.Context, entity, field string, cutoff time.Time) (int64, error)
}

// Entity names one tracked metric: a backend table, the metric key it feeds,
// and an optional recency window over a timestamp column.
type Entity struct {
	Table  string
	Metric string
	Field  string
	Window time.Duration
}

// Snapshot is one computed set of aggregate metrics.
type Snapshot struct {
	Metrics     map[string]int64 `json:"metrics"`
	RefreshedAt time.Time        `json:"refreshed_at"`
}

// Fixed recency windows, measured back from "now" at call time.
const (
	WindowMonth   = 30 * 24 * time.Hour
	WindowQuarter = 90 * 24 * time.Hour
	WindowYear    = 365 * 24 * time.Hour
)

// Snapshot cache keys.
const (
	KeyHome     = "home-stats"
	KeyAdvanced = "advanced-stats"
)

// HomeEntities feeds the public landing page counters.
var HomeEntities = []Entity{
	{Table: "countries", Metric: "countries"},
	{Table: "projects", Metric: "projects"},
	{Table: "partners", Metric: "partners"},
	{Table: "events", Metric: "events"},
	{Table: "projects", Metric: "projects_this_quarter", Field: "created_at", Window: WindowQuarter},
	{Table: "events", Metric: "events_this_month", Field: "starts_at", Window: WindowMonth},
}

// AdvancedEntities feeds the operational dashboard.
var AdvancedEntities = []Entity{
	{Table: "countries", Metric: "countries"},
	{Table: "projects", Metric: "projects"},
	{Table: "partners", Metric: "partners"},
	{Table: "events", Metric: "events"},
	{Table: "documents", Metric: "documents"},
	{Table: "discussions", Metric: "discussions"},
	{Table: "members", Metric: "members"},
	{Table: "projects", Metric: "projects_this_quarter", Field: "created_at", Window: WindowQuarter},
	{Table: "documents", Metric: "documents_this_month", Field: "created_at", Window: WindowMonth},
	{Table: "discussions", Metric: "discussions_this_month", Field: "created_at", Window: WindowMonth},
	{Table: "members", Metric: "members_this_year", Field: "created_at", Window: WindowYear},
	{Table: "events", Metric: "events_this_month", Field: "starts_at", Window: WindowMonth},
}
