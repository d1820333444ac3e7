package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// fakeStore is an in-memory Store used across the package tests.
type fakeStore struct {
	mu        sync.Mutex
	accounts  map[string]*Account
	roles     map[string]Role
	companies map[string]*Company
	links     []*LinkedAccount
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		accounts:  make(map[string]*Account),
		roles:     make(map[string]Role),
		companies: make(map[string]*Company),
	}
	for i, name := range []string{RoleSuperadmin, "admin", "manager", "employee"} {
		id := "role-" + name
		s.roles[id] = Role{ID: id, Name: name, Rank: i + 1}
	}
	return s
}

func (s *fakeStore) Accounts() AccountStore  { return fakeAccounts{s} }
func (s *fakeStore) Roles() RoleStore        { return fakeRoles{s} }
func (s *fakeStore) Companies() CompanyStore { return fakeCompanies{s} }
func (s *fakeStore) Links() LinkStore        { return fakeLinks{s} }

func (s *fakeStore) addAccount(id, roleName string, companyID *string, active bool, passwordHash string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &Account{
		ID:           id,
		Username:     id,
		Email:        id + "@example.com",
		PasswordHash: passwordHash,
		Active:       active,
		Status:       StatusOffline,
		RoleID:       "role-" + roleName,
		CompanyID:    companyID,
	}
	s.accounts[id] = a
	return a
}

func (s *fakeStore) addCompany(id, name string) *Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &Company{ID: id, Name: name}
	s.companies[id] = c
	return c
}

func (s *fakeStore) addLink(accountID, provider, providerUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, &LinkedAccount{
		ID:             fmt.Sprintf("link-%d", len(s.links)+1),
		AccountID:      accountID,
		Provider:       provider,
		ProviderUserID: providerUserID,
	})
}

type fakeAccounts struct{ s *fakeStore }

func (f fakeAccounts) FindByID(_ context.Context, id string) (*Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (f fakeAccounts) FindByIdentifier(_ context.Context, identifier string) (*Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.accounts {
		if a.Username == identifier || a.Email == identifier {
			copied := *a
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (f fakeAccounts) ClaimSession(_ context.Context, accountID, marker string, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	if a.SessionMarker != nil {
		return ErrAlreadyLoggedIn
	}
	a.SessionMarker = &marker
	a.Status = StatusOnline
	a.LastLoginAt = &at
	return nil
}

func (f fakeAccounts) ClearSession(_ context.Context, accountID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[accountID]
	if !ok {
		return nil
	}
	a.SessionMarker = nil
	a.Status = StatusOffline
	return nil
}

func (f fakeAccounts) SetActive(_ context.Context, accountID string, active bool) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.Active = active
	if !active {
		a.SessionMarker = nil
		a.Status = StatusOffline
	}
	return nil
}

func (f fakeAccounts) UpdateRole(_ context.Context, accountID, roleID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.RoleID = roleID
	return nil
}

type fakeRoles struct{ s *fakeStore }

func (f fakeRoles) FindByID(_ context.Context, id string) (Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	role, ok := f.s.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (f fakeRoles) FindByName(_ context.Context, name string) (Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, role := range f.s.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, ErrNotFound
}

func (f fakeRoles) List(_ context.Context) ([]Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]Role, 0, len(f.s.roles))
	for _, role := range f.s.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

type fakeCompanies struct{ s *fakeStore }

func (f fakeCompanies) FindByID(_ context.Context, id string) (*Company, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

type fakeLinks struct{ s *fakeStore }

func (f fakeLinks) FindByProviderUserID(_ context.Context, provider, providerUserID string) (*LinkedAccount, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, l := range f.s.links {
		if l.Provider == provider && l.ProviderUserID == providerUserID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (f fakeLinks) Create(_ context.Context, link *LinkedAccount) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, l := range f.s.links {
		if l.Provider == link.Provider && l.ProviderUserID == link.ProviderUserID {
			return ErrAlreadyLinked
		}
	}
	copied := *link
	f.s.links = append(f.s.links, &copied)
	return nil
}

func (f fakeLinks) ProvidersForAccount(_ context.Context, accountID string) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []string
	for _, l := range f.s.links {
		if l.AccountID == accountID {
			out = append(out, l.Provider)
		}
	}
	sort.Strings(out)
	return out, nil
}

// fakeProvider is a canned ProviderClient.
type fakeProvider struct {
	profile     ProviderProfile
	exchangeErr error
	profileErr  error
}

func (p *fakeProvider) Name() string { return "github" }

func (p *fakeProvider) AuthorizeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (string, error) {
	if p.exchangeErr != nil {
		return "", p.exchangeErr
	}
	return "provider-token-" + code, nil
}

func (p *fakeProvider) FetchProfile(_ context.Context, _ string) (ProviderProfile, error) {
	if p.profileErr != nil {
		return ProviderProfile{}, p.profileErr
	}
	return p.profile, nil
}
