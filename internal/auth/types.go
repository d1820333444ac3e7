package auth

import "time"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// RoleSuperadmin is the system-wide role. Accounts holding it operate across
// company boundaries and may assign any role.
const RoleSuperadmin = "superadmin"

// Account is a user of the platform. A nil CompanyID denotes a global/system
// account that is not bound to any tenant.
type Account struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	Active        bool
	Status        string
	LastLoginAt   *time.Time
	SessionMarker *string
	RoleID        string
	CompanyID     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Role is rank-ordered reference data. Lower rank means more privilege:
// superadmin(1) outranks admin(2) outranks manager(3) outranks employee(4).
type Role struct {
	ID        string
	Name      string
	Rank      int
	CreatedAt time.Time
}

// Company is the tenant boundary. Creation and editing happen outside this
// core; it is read here only for scope checks.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// LinkedAccount maps an external provider identity to an internal account.
// A given (provider, provider user id) pair maps to at most one account.
type LinkedAccount struct {
	ID             string
	AccountID      string
	Provider       string
	ProviderUserID string
	ProviderEmail  string
	CreatedAt      time.Time
}

// Caller is an authenticated account together with its resolved role.
type Caller struct {
	Account *Account
	Role    Role
}

// Global reports whether the caller has system-wide scope.
func (c Caller) Global() bool {
	return c.Role.Name == RoleSuperadmin
}
