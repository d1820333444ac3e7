package auth

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/trongquochuydinh/semester-project/internal/ids"
)

const defaultTokenTTL = time.Hour

// Service composes the token service, state store, session manager, role
// resolver and scope guard into the user-facing authentication flows.
type Service struct {
	store    Store
	states   StateStore
	tokens   *TokenService
	provider ProviderClient
	sessions *SessionManager
	resolver *RoleResolver
	guard    *CompanyGuard

	now      func() time.Time
	tokenTTL time.Duration

	successURL string
	linkedURL  string
	errorURL   string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithTokenTTL configures session token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithRedirects configures the browser destinations of the OAuth flows.
func WithRedirects(successURL, linkedURL, errorURL string) ServiceOption {
	return func(s *Service) error {
		if successURL == "" || linkedURL == "" || errorURL == "" {
			return errors.New("auth: all redirect URLs are required")
		}
		s.successURL = successURL
		s.linkedURL = linkedURL
		s.errorURL = errorURL
		return nil
	}
}

// NewService constructs the orchestrator.
func NewService(store Store, states StateStore, tokens *TokenService, provider ProviderClient, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if states == nil {
		return nil, errors.New("auth: state store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	s := &Service{
		store:      store,
		states:     states,
		tokens:     tokens,
		provider:   provider,
		now:        time.Now,
		tokenTTL:   defaultTokenTTL,
		successURL: "http://localhost:8000/auth/oauth-success",
		linkedURL:  "http://localhost:8000/auth/oauth-linked",
		errorURL:   "http://localhost:8000/",
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.sessions = NewSessionManager(store.Accounts(), WithSessionClock(s.now))
	s.resolver = NewRoleResolver(store.Roles())
	s.guard = NewCompanyGuard(store.Companies())
	return s, nil
}

// Sessions exposes the session manager for administrative paths.
func (s *Service) Sessions() *SessionManager { return s.sessions }

// Guard exposes the company scope guard.
func (s *Service) Guard() *CompanyGuard { return s.guard }

// PublicProfile is what a successful login reveals about the account.
type PublicProfile struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Role      string   `json:"role"`
	CompanyID *string  `json:"company_id"`
	Providers []string `json:"providers"`
}

// LoginResult carries the issued token and the public profile.
type LoginResult struct {
	Token     string        `json:"access_token"`
	TokenType string        `json:"token_type"`
	ExpiresAt time.Time     `json:"expires_at"`
	Profile   PublicProfile `json:"profile"`
}

// Login authenticates with identifier (username or email) and password. A
// missing account and a wrong password both surface as ErrInvalidCredentials
// so the response does not reveal which field was wrong.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	account, err := s.store.Accounts().FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.Active {
		return nil, ErrAccountDisabled
	}
	return s.loginAccount(ctx, account)
}

// loginAccount establishes the session and mints the token. Shared by the
// password and OAuth login flows.
func (s *Service) loginAccount(ctx context.Context, account *Account) (*LoginResult, error) {
	role, err := s.store.Roles().FindByID(ctx, account.RoleID)
	if err != nil {
		return nil, err
	}
	marker, err := s.sessions.Establish(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.tokens.Issue(account.ID, role.Name, marker, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	providers, err := s.store.Links().ProvidersForAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expiresAt,
		Profile: PublicProfile{
			ID:        account.ID,
			Username:  account.Username,
			Role:      role.Name,
			CompanyID: account.CompanyID,
			Providers: providers,
		},
	}, nil
}

// Profile returns the public view of the caller's account.
func (s *Service) Profile(ctx context.Context, caller Caller) (PublicProfile, error) {
	providers, err := s.store.Links().ProvidersForAccount(ctx, caller.Account.ID)
	if err != nil {
		return PublicProfile{}, err
	}
	return PublicProfile{
		ID:        caller.Account.ID,
		Username:  caller.Account.Username,
		Role:      caller.Role.Name,
		CompanyID: caller.Account.CompanyID,
		Providers: providers,
	}, nil
}

// Logout clears the caller's own session. Always succeeds.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	return s.sessions.Clear(ctx, accountID)
}

// Authenticate validates a bearer token and cross-checks the embedded session
// marker against the stored one. An expired token triggers a best-effort
// forced session clear before the error surfaces; the cleanup never masks
// ErrTokenExpired.
func (s *Service) Authenticate(ctx context.Context, token string) (Caller, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			s.CleanupExpiredToken(ctx, token)
			return Caller{}, ErrTokenExpired
		}
		return Caller{}, err
	}
	account, err := s.store.Accounts().FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Caller{}, ErrTokenInvalid
		}
		return Caller{}, err
	}
	// A marker mismatch means the session was logged out, superseded, or
	// force-cleared since the token was issued.
	if account.SessionMarker == nil || *account.SessionMarker != claims.SessionID {
		return Caller{}, ErrTokenInvalid
	}
	if !account.Active {
		return Caller{}, ErrAccountDisabled
	}
	role, err := s.store.Roles().FindByID(ctx, account.RoleID)
	if err != nil {
		return Caller{}, err
	}
	return Caller{Account: account, Role: role}, nil
}

// CleanupExpiredToken recovers the account id from an expired token and
// force-clears its session. Best effort: an unverifiable token or a missing
// account is ignored.
func (s *Service) CleanupExpiredToken(ctx context.Context, token string) {
	claims, err := s.tokens.DecodeIgnoringExpiry(token)
	if err != nil {
		return
	}
	_ = s.sessions.ForceClearByID(ctx, claims.Subject)
}

// OAuthLoginStart begins an anonymous provider login and returns the
// authorization URL to redirect the browser to.
func (s *Service) OAuthLoginStart(ctx context.Context) (string, error) {
	state, err := s.states.Create(ctx, nil)
	if err != nil {
		return "", err
	}
	return s.provider.AuthorizeURL(state), nil
}

// OAuthLinkStart begins linking the provider identity to an existing,
// already-authenticated account.
func (s *Service) OAuthLinkStart(ctx context.Context, accountID string) (string, error) {
	state, err := s.states.Create(ctx, &accountID)
	if err != nil {
		return "", err
	}
	return s.provider.AuthorizeURL(state), nil
}

// OAuthCallback consumes the state and completes either the login or the
// linking flow. This is a browser navigation, so every outcome is a redirect
// URL; failures carry a generic human-readable message instead of a status
// code. A non-nil error means an infrastructure failure the handler should
// translate into the generic error redirect itself.
func (s *Service) OAuthCallback(ctx context.Context, code, state string) (string, error) {
	accountID, err := s.states.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, ErrStateInvalid) {
			return s.errorRedirect("OAuth request could not be verified"), nil
		}
		return "", err
	}

	providerToken, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return s.errorRedirect("Sign-in with " + s.provider.Name() + " failed"), nil
	}
	profile, err := s.provider.FetchProfile(ctx, providerToken)
	if err != nil {
		return s.errorRedirect("Sign-in with " + s.provider.Name() + " failed"), nil
	}

	link, err := s.store.Links().FindByProviderUserID(ctx, s.provider.Name(), profile.UserID)
	notLinked := errors.Is(err, ErrNotFound)
	if err != nil && !notLinked {
		return "", err
	}

	if accountID == nil {
		return s.callbackLogin(ctx, link, notLinked)
	}
	return s.callbackLink(ctx, *accountID, profile, notLinked)
}

func (s *Service) callbackLogin(ctx context.Context, link *LinkedAccount, notLinked bool) (string, error) {
	if notLinked {
		return s.errorRedirect("Account is not linked to any user"), nil
	}
	account, err := s.store.Accounts().FindByID(ctx, link.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.errorRedirect("User account is disabled"), nil
		}
		return "", err
	}
	if !account.Active {
		return s.errorRedirect("User account is disabled"), nil
	}
	result, err := s.loginAccount(ctx, account)
	if err != nil {
		if errors.Is(err, ErrAlreadyLoggedIn) {
			return s.errorRedirect("User is already logged in elsewhere"), nil
		}
		return "", err
	}
	return s.successURL + "?token=" + url.QueryEscape(result.Token), nil
}

func (s *Service) callbackLink(ctx context.Context, accountID string, profile ProviderProfile, notLinked bool) (string, error) {
	if !notLinked {
		return s.errorRedirect("Account already linked"), nil
	}
	link := &LinkedAccount{
		ID:             ids.New(),
		AccountID:      accountID,
		Provider:       s.provider.Name(),
		ProviderUserID: profile.UserID,
		ProviderEmail:  profile.Email,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.Links().Create(ctx, link); err != nil {
		if errors.Is(err, ErrAlreadyLinked) {
			return s.errorRedirect("Account already linked"), nil
		}
		return "", err
	}
	return s.linkedURL, nil
}

// ErrorRedirect builds the generic OAuth error redirect URL.
func (s *Service) ErrorRedirect(message string) string {
	return s.errorRedirect(message)
}

func (s *Service) errorRedirect(message string) string {
	q := url.Values{}
	q.Set("error", message)
	return s.errorURL + "?" + q.Encode()
}

// AssignableRoles lists the roles the caller may assign, excluding its own.
func (s *Service) AssignableRoles(ctx context.Context, caller Caller) ([]Role, error) {
	return s.resolver.ListSubroles(ctx, caller.Role.Name, []string{caller.Role.Name})
}

// AssignRole changes the target account's role after rank and scope checks.
func (s *Service) AssignRole(ctx context.Context, caller Caller, targetAccountID, roleName string) error {
	accounts := s.store.Accounts()
	target, err := accounts.FindByID(ctx, targetAccountID)
	if err != nil {
		return err
	}
	if err := AssertScope(caller.Global(), caller.Account.CompanyID, target.CompanyID); err != nil {
		return err
	}
	role, err := s.resolver.ResolveAssignable(ctx, roleName, caller)
	if err != nil {
		return err
	}
	return accounts.UpdateRole(ctx, target.ID, role.ID)
}

// SetAccountActive enables or disables the target account after a scope
// check. Disabling always forces the account to logged-out.
func (s *Service) SetAccountActive(ctx context.Context, caller Caller, targetAccountID string, active bool) error {
	accounts := s.store.Accounts()
	target, err := accounts.FindByID(ctx, targetAccountID)
	if err != nil {
		return err
	}
	if err := AssertScope(caller.Global(), caller.Account.CompanyID, target.CompanyID); err != nil {
		return err
	}
	return accounts.SetActive(ctx, target.ID, active)
}
