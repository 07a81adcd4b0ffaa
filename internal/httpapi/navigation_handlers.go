package httpapi

import (
	"net/http"
	"strings"

	"usfconnect.africa/internal/access"
)

type navigationResponse struct {
	Path       string            `json:"path"`
	Role       string            `json:"role"`
	Visibility access.Visibility `json:"visibility"`
	Nav        []access.NavItem  `json:"nav"`
}

func (a *API) handleNavigation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		path = "/"
	}

	role := principalRole(r)
	writeJSON(w, http.StatusOK, navigationResponse{
		Path:       path,
		Role:       role.String(),
		Visibility: access.Resolve(path),
		Nav:        access.VisibleNav(access.DefaultNav, role),
	})
}
