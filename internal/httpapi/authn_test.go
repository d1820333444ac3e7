package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/trongquochuydinh/semester-project/internal/auth"
)

func TestWithAuthPublicPath(t *testing.T) {
	api := newTestAPI(&stubService{})
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestWithAuthMissingToken(t *testing.T) {
	api := newTestAPI(&stubService{})
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWithAuthBadScheme(t *testing.T) {
	api := newTestAPI(&stubService{})
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWithAuthExpiredToken(t *testing.T) {
	svc := &stubService{
		authenticate: func(context.Context, string) (auth.Caller, error) {
			return auth.Caller{}, auth.ErrTokenExpired
		},
	}
	api := newTestAPI(svc)
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "session expired") {
		t.Fatalf("expected expiry message, got %s", rr.Body.String())
	}
}

func TestWithAuthDisabledAccount(t *testing.T) {
	svc := &stubService{
		authenticate: func(context.Context, string) (auth.Caller, error) {
			return auth.Caller{}, auth.ErrAccountDisabled
		},
	}
	api := newTestAPI(svc)
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestWithAuthAttachesCaller(t *testing.T) {
	svc := &stubService{
		authenticate: func(_ context.Context, token string) (auth.Caller, error) {
			if token != "tok-1" {
				t.Fatalf("unexpected token: %q", token)
			}
			return testCaller(), nil
		},
	}
	api := newTestAPI(svc)
	handler := api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.CallerFromContext(r.Context())
		if !ok || caller.Account.ID != "acct-1" {
			t.Fatalf("caller missing from context: %+v", caller)
		}
		if tok, ok := auth.TokenFromContext(r.Context()); !ok || tok != "tok-1" {
			t.Fatalf("token missing from context: %q", tok)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	if _, err := extractBearerToken(""); err == nil {
		t.Fatal("expected error for empty header")
	}
	if _, err := extractBearerToken("Bearer "); err == nil {
		t.Fatal("expected error for empty token")
	}
	token, err := extractBearerToken("bearer abc123")
	if err != nil {
		t.Fatalf("extractBearerToken: %v", err)
	}
	if token != "abc123" {
		t.Fatalf("unexpected token: %q", token)
	}
}
