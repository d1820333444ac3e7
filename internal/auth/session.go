package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionManager enforces at most one live session per account. The marker is
// an opaque per-login value stored on the account row and embedded in issued
// tokens; the claim is a single conditional update so two concurrent logins
// cannot both succeed.
type SessionManager struct {
	accounts  AccountStore
	now       func() time.Time
	newMarker func() string
}

// SessionOption configures SessionManager.
type SessionOption func(*SessionManager)

// WithSessionClock overrides the time source (useful for tests).
func WithSessionClock(fn func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithMarkerFunc overrides marker generation (useful for tests).
func WithMarkerFunc(fn func() string) SessionOption {
	return func(m *SessionManager) {
		if fn != nil {
			m.newMarker = fn
		}
	}
}

// NewSessionManager constructs a SessionManager over the account store.
func NewSessionManager(accounts AccountStore, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		accounts:  accounts,
		now:       time.Now,
		newMarker: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Establish creates a fresh session marker for the account, moving it online
// and stamping the login time. It fails with ErrAlreadyLoggedIn when the
// account already holds a live session.
func (m *SessionManager) Establish(ctx context.Context, accountID string) (string, error) {
	marker := m.newMarker()
	if err := m.accounts.ClaimSession(ctx, accountID, marker, m.now().UTC()); err != nil {
		return "", err
	}
	return marker, nil
}

// Clear drops the account's session marker and sets it offline. Clearing an
// already-cleared account is a no-op.
func (m *SessionManager) Clear(ctx context.Context, accountID string) error {
	return m.accounts.ClearSession(ctx, accountID)
}

// ForceClearByID clears the session of an account known only by id, as
// recovered from an expired token. A missing account is not an error.
func (m *SessionManager) ForceClearByID(ctx context.Context, accountID string) error {
	err := m.accounts.ClearSession(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
