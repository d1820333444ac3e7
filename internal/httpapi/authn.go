package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/trongquochuydinh/semester-project/internal/auth"
	"github.com/trongquochuydinh/semester-project/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// authService is the slice of the auth service the HTTP layer needs.
type authService interface {
	Login(ctx context.Context, identifier, password string) (*auth.LoginResult, error)
	Logout(ctx context.Context, accountID string) error
	Authenticate(ctx context.Context, token string) (auth.Caller, error)
	Profile(ctx context.Context, caller auth.Caller) (auth.PublicProfile, error)
	OAuthLoginStart(ctx context.Context) (string, error)
	OAuthLinkStart(ctx context.Context, accountID string) (string, error)
	OAuthCallback(ctx context.Context, code, state string) (string, error)
	ErrorRedirect(message string) string
	AssignableRoles(ctx context.Context, caller auth.Caller) ([]auth.Role, error)
	AssignRole(ctx context.Context, caller auth.Caller, targetAccountID, roleName string) error
	SetAccountActive(ctx context.Context, caller auth.Caller, targetAccountID string, active bool) error
}

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/oauth/github/login",
	"/v1/auth/oauth/github/callback",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		caller, err := a.service.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				// The service already force-cleared the stale session.
				obs.ObserveSessionCleanup()
				writeError(w, r, http.StatusUnauthorized, "session expired, please log in again")
			case errors.Is(err, auth.ErrTokenInvalid):
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			case errors.Is(err, auth.ErrAccountDisabled):
				writeError(w, r, http.StatusForbidden, "account is disabled")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithCaller(r.Context(), caller)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCaller pulls the authenticated caller placed by withAuth.
func requireCaller(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Caller{}, false
	}
	return caller, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
