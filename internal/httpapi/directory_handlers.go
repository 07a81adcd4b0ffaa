package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"usfconnect.africa/internal/audit"
	"usfconnect.africa/internal/auth"
	"usfconnect.africa/internal/directory"
)

type createMemberRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Role     string `json:"role"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleMembersCollection(w http.ResponseWriter, r *http.Request) {
	if a.directory == nil {
		writeError(w, r, http.StatusServiceUnavailable, "directory service unavailable")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listMembers(w, r)
	case http.MethodPost:
		a.createMember(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMembersManage) {
		return
	}
	members, err := a.directory.ListMembers(r.Context(), r.URL.Query().Get("country"))
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": members})
}

func (a *API) createMember(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.PermMembersManage) {
		return
	}
	var req createMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	member, err := a.directory.CreateMember(r.Context(), req.Email, req.Password, req.Name, req.Country, req.Role)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	_ = auditEvent(r, "directory.member.created", map[string]any{
		"member_id": member.ID,
		"role":      member.Role.String(),
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/members/%s", member.ID))
	writeJSON(w, http.StatusCreated, member)
}

func (a *API) handleMemberResource(w http.ResponseWriter, r *http.Request) {
	if a.directory == nil {
		writeError(w, r, http.StatusServiceUnavailable, "directory service unavailable")
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/members/"), "/")
	if rest == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		a.getMember(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "role":
		a.setMemberRole(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getMember(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermissions(w, r, auth.PermMembersManage) {
		return
	}
	member, err := a.directory.GetMember(r.Context(), id)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// setMemberRole is the privileged role-change RPC. Responses use the
// {data, error} envelope its admin-panel consumer expects.
func (a *API) setMemberRole(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensurePermissions(w, r, auth.PermMembersRoleUpdate) {
		return
	}
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, nil, err.Error())
		return
	}
	member, err := a.directory.SetRole(r.Context(), id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrInvalidInput):
			writeEnvelope(w, http.StatusBadRequest, nil, err.Error())
		case errors.Is(err, directory.ErrNotFound):
			writeEnvelope(w, http.StatusNotFound, nil, "member not found")
		default:
			writeEnvelope(w, http.StatusInternalServerError, nil, "internal error")
		}
		return
	}
	writeEnvelope(w, http.StatusOK, member, "")
}

func auditEvent(r *http.Request, event string, fields map[string]any) error {
	return audit.LogEvent(r.Context(), event, fields)
}

func handleDirectoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "member not found")
	case errors.Is(err, directory.ErrConflict):
		writeError(w, r, http.StatusConflict, "member already exists")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
