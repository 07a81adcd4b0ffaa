package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready.",
	})
)

// Portal pipeline metrics.
var (
	snapshotRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_snapshot_refresh_total",
			Help: "Aggregate stats snapshot refreshes by cache key.",
		},
		[]string{"key"},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_requests_total",
			Help: "Snapshot cache lookups by key and result (hit|miss|stale).",
		},
		[]string{"key", "result"},
	)

	countFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_count_failures_total",
			Help: "Per-entity count queries degraded to zero.",
		},
		[]string{"entity"},
	)

	feedFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_feed_fetch_failures_total",
			Help: "Activity feed source fetches that returned no rows due to an error.",
		},
		[]string{"source"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration, readyGauge,
		snapshotRefreshTotal, cacheRequestsTotal, countFailuresTotal, feedFailuresTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// ObserveSnapshotRefresh counts one snapshot rebuild.
func ObserveSnapshotRefresh(key string) {
	snapshotRefreshTotal.WithLabelValues(key).Inc()
}

// ObserveCacheRequest counts one cache lookup outcome.
func ObserveCacheRequest(key, result string) {
	cacheRequestsTotal.WithLabelValues(key, result).Inc()
}

// ObserveCountFailure counts one degraded entity count.
func ObserveCountFailure(entity string) {
	countFailuresTotal.WithLabelValues(entity).Inc()
}

// ObserveFeedFailure counts one failed feed source fetch.
func ObserveFeedFailure(source string) {
	feedFailuresTotal.WithLabelValues(source).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses per-resource identifiers so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}

	if rest, ok := strings.CutPrefix(path, "/v1/members/"); ok {
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		switch {
		case len(parts) == 1 && parts[0] != "":
			return "/v1/members/:id"
		case len(parts) == 2 && parts[1] == "role":
			return "/v1/members/:id/role"
		}
	}
	return path
}

// statusWriter captures the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
