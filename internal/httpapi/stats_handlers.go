package httpapi

import (
	"net/http"

	"usfconnect.africa/internal/auth"
)

func (a *API) handleHomeStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.stats == nil {
		writeError(w, r, http.StatusServiceUnavailable, "stats service unavailable")
		return
	}
	snap, err := a.stats.Home(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleAdvancedStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.stats == nil {
		writeError(w, r, http.StatusServiceUnavailable, "stats service unavailable")
		return
	}
	if !a.ensurePermissions(w, r, auth.PermStatsAdvanced) {
		return
	}
	snap, err := a.stats.Advanced(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
