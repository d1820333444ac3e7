package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Accounts() AccountStore
	Roles() RoleStore
	Companies() CompanyStore
	Links() LinkStore
}

// AccountStore manages accounts and their session markers.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	// FindByIdentifier matches username or email.
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
	// ClaimSession sets the session marker, online status and last-login
	// timestamp in a single conditional update. It fails with
	// ErrAlreadyLoggedIn when a marker is already present and with
	// ErrNotFound when the account does not exist.
	ClaimSession(ctx context.Context, accountID, marker string, at time.Time) error
	// ClearSession unsets the marker and sets the account offline. Clearing
	// an account without a session, or a missing account, is a no-op.
	ClearSession(ctx context.Context, accountID string) error
	// SetActive enables or disables the account. Disabling also clears any
	// live session in the same statement.
	SetActive(ctx context.Context, accountID string, active bool) error
	UpdateRole(ctx context.Context, accountID, roleID string) error
}

// RoleStore reads rank-ordered reference roles.
type RoleStore interface {
	FindByID(ctx context.Context, id string) (Role, error)
	FindByName(ctx context.Context, name string) (Role, error)
	List(ctx context.Context) ([]Role, error)
}

// CompanyStore reads tenant reference data.
type CompanyStore interface {
	FindByID(ctx context.Context, id string) (*Company, error)
}

// LinkStore manages provider identity links.
type LinkStore interface {
	FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*LinkedAccount, error)
	Create(ctx context.Context, link *LinkedAccount) error
	ProvidersForAccount(ctx context.Context, accountID string) ([]string, error)
}
