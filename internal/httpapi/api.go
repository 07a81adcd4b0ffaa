package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"usfconnect.africa/internal/activity"
	"usfconnect.africa/internal/directory"
	"usfconnect.africa/internal/obs"
	"usfconnect.africa/internal/stats"
)

// ReadyProbe checks service readiness (for example a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer of the Connect portal backend.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	stats     *stats.Service
	feeds     activity.Source
	directory *directory.Service

	rateBurst  int
	ratePerSec int
}

// New wires the API routes. stats, feeds and directory may each be nil in
// partial deployments; their routes then answer 503.
func New(rp ReadyProbe, version string, statsSvc *stats.Service, feeds activity.Source, dir *directory.Service) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		stats:      statsSvc,
		feeds:      feeds,
		directory:  dir,
		rateBurst:  40,
		ratePerSec: 20,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	a.mux.HandleFunc("/v1/stats/home", a.handleHomeStats)
	a.mux.HandleFunc("/v1/stats/advanced", a.handleAdvancedStats)
	a.mux.HandleFunc("/v1/activity", a.handleActivity)
	a.mux.HandleFunc("/v1/navigation", a.handleNavigation)

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)
	a.mux.HandleFunc("/v1/members", a.handleMembersCollection)
	a.mux.HandleFunc("/v1/members/", a.handleMemberResource)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- health / info handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "connect-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "connect-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
