package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/trongquochuydinh/semester-project/internal/audit"
	"github.com/trongquochuydinh/semester-project/internal/auth"
	"github.com/trongquochuydinh/semester-project/internal/obs"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "identifier and password are required")
		return
	}

	result, err := a.service.Login(r.Context(), identifier, req.Password)
	if err != nil {
		obs.ObserveLogin("password", loginFailureLabel(err))
		handleAuthError(w, r, err)
		return
	}

	obs.ObserveLogin("password", "ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"account_id": result.Profile.ID,
		"method":     "password",
	})
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	if err := a.service.Logout(r.Context(), caller.Account.ID); err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"account_id": caller.Account.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	profile, err := a.service.Profile(r.Context(), caller)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	dest, err := a.service.OAuthLoginStart(r.Context())
	if err != nil {
		http.Redirect(w, r, a.service.ErrorRedirect("Sign-in could not be started"), http.StatusFound)
		return
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

func (a *API) handleOAuthLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	dest, err := a.service.OAuthLinkStart(r.Context(), caller.Account.ID)
	if err != nil {
		http.Redirect(w, r, a.service.ErrorRedirect("Account linking could not be started"), http.StatusFound)
		return
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

// handleOAuthCallback is a browser navigation: every outcome is a redirect.
func (a *API) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Redirect(w, r, a.service.ErrorRedirect("OAuth request could not be verified"), http.StatusFound)
		return
	}

	dest, err := a.service.OAuthCallback(r.Context(), code, state)
	if err != nil {
		obs.ObserveLogin("oauth", "error")
		http.Redirect(w, r, a.service.ErrorRedirect("Sign-in failed"), http.StatusFound)
		return
	}

	result := "ok"
	if strings.Contains(dest, "error=") {
		result = "rejected"
	}
	obs.ObserveLogin("oauth", result)
	_ = audit.LogEvent(r.Context(), "auth.oauth.callback", map[string]any{
		"result": result,
	})
	http.Redirect(w, r, dest, http.StatusFound)
}

// loginFailureLabel buckets login errors for the metrics counter.
func loginFailureLabel(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrAccountDisabled):
		return "disabled"
	case errors.Is(err, auth.ErrAlreadyLoggedIn):
		return "conflict"
	default:
		return "error"
	}
}

// handleAuthError maps domain errors onto HTTP status codes.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrAccountDisabled):
		writeError(w, r, http.StatusForbidden, "account is disabled")
	case errors.Is(err, auth.ErrAlreadyLoggedIn):
		writeError(w, r, http.StatusConflict, "user is already logged in")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrRoleNotFound):
		writeError(w, r, http.StatusNotFound, "role not found")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, r, http.StatusUnauthorized, "session expired, please log in again")
	case errors.Is(err, auth.ErrTokenInvalid):
		writeError(w, r, http.StatusUnauthorized, "invalid token")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
