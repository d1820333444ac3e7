package httpapi

import (
	"net/http"
	"strings"

	"github.com/trongquochuydinh/semester-project/internal/audit"
)

type roleResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

func (a *API) handleAssignableRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	roles, err := a.service.AssignableRoles(r.Context(), caller)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{ID: role.ID, Name: role.Name, Rank: role.Rank})
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": out})
}

// handleAccounts dispatches /v1/accounts/{id}/role and /v1/accounts/{id}/active.
func (a *API) handleAccounts(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	accountID, action := parts[0], parts[1]

	switch action {
	case "role":
		a.handleAccountRole(w, r, accountID)
	case "active":
		a.handleAccountActive(w, r, accountID)
	default:
		http.NotFound(w, r)
	}
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleAccountRole(w http.ResponseWriter, r *http.Request, accountID string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	roleName := strings.TrimSpace(req.Role)
	if roleName == "" {
		writeError(w, r, http.StatusBadRequest, "role is required")
		return
	}

	if err := a.service.AssignRole(r.Context(), caller, accountID, roleName); err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "rbac.role.assigned", map[string]any{
		"target_account_id": accountID,
		"role":              strings.ToLower(roleName),
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (a *API) handleAccountActive(w http.ResponseWriter, r *http.Request, accountID string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Active == nil {
		writeError(w, r, http.StatusBadRequest, "active is required")
		return
	}

	if err := a.service.SetAccountActive(r.Context(), caller, accountID, *req.Active); err != nil {
		handleAuthError(w, r, err)
		return
	}

	event := "rbac.account.disabled"
	if *req.Active {
		event = "rbac.account.enabled"
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"target_account_id": accountID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}
