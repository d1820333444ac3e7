package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/trongquochuydinh/semester-project/internal/auth"
)

// stubService lets handler tests script each operation.
type stubService struct {
	login           func(ctx context.Context, identifier, password string) (*auth.LoginResult, error)
	logout          func(ctx context.Context, accountID string) error
	authenticate    func(ctx context.Context, token string) (auth.Caller, error)
	profile         func(ctx context.Context, caller auth.Caller) (auth.PublicProfile, error)
	oauthLoginStart func(ctx context.Context) (string, error)
	oauthLinkStart  func(ctx context.Context, accountID string) (string, error)
	oauthCallback   func(ctx context.Context, code, state string) (string, error)
	assignableRoles func(ctx context.Context, caller auth.Caller) ([]auth.Role, error)
	assignRole      func(ctx context.Context, caller auth.Caller, targetAccountID, roleName string) error
	setActive       func(ctx context.Context, caller auth.Caller, targetAccountID string, active bool) error
}

func (s *stubService) Login(ctx context.Context, identifier, password string) (*auth.LoginResult, error) {
	return s.login(ctx, identifier, password)
}

func (s *stubService) Logout(ctx context.Context, accountID string) error {
	return s.logout(ctx, accountID)
}

func (s *stubService) Authenticate(ctx context.Context, token string) (auth.Caller, error) {
	if s.authenticate == nil {
		return auth.Caller{}, auth.ErrTokenInvalid
	}
	return s.authenticate(ctx, token)
}

func (s *stubService) Profile(ctx context.Context, caller auth.Caller) (auth.PublicProfile, error) {
	return s.profile(ctx, caller)
}

func (s *stubService) OAuthLoginStart(ctx context.Context) (string, error) {
	return s.oauthLoginStart(ctx)
}

func (s *stubService) OAuthLinkStart(ctx context.Context, accountID string) (string, error) {
	return s.oauthLinkStart(ctx, accountID)
}

func (s *stubService) OAuthCallback(ctx context.Context, code, state string) (string, error) {
	return s.oauthCallback(ctx, code, state)
}

func (s *stubService) ErrorRedirect(message string) string {
	return "http://localhost:8000/?error=" + message
}

func (s *stubService) AssignableRoles(ctx context.Context, caller auth.Caller) ([]auth.Role, error) {
	return s.assignableRoles(ctx, caller)
}

func (s *stubService) AssignRole(ctx context.Context, caller auth.Caller, targetAccountID, roleName string) error {
	return s.assignRole(ctx, caller, targetAccountID, roleName)
}

func (s *stubService) SetAccountActive(ctx context.Context, caller auth.Caller, targetAccountID string, active bool) error {
	return s.setActive(ctx, caller, targetAccountID, active)
}

func testCaller() auth.Caller {
	companyID := "co-1"
	return auth.Caller{
		Account: &auth.Account{ID: "acct-1", Username: "alice", CompanyID: &companyID, Active: true},
		Role:    auth.Role{ID: "role-admin", Name: "admin", Rank: 2},
	}
}

// serveAuthed runs the request through the handler with a caller already in
// context, skipping the withAuth middleware.
func serveAuthed(api *API, req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(auth.ContextWithCaller(req.Context(), testCaller()))
	rr := httptest.NewRecorder()
	api.mux.ServeHTTP(rr, req)
	return rr
}
