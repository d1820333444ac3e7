package auth

import "context"

// AssertScope enforces the tenant boundary: a non-global caller may act only
// within its own company. Global callers bypass the check entirely.
func AssertScope(isGlobal bool, callerCompanyID, targetCompanyID *string) error {
	if isGlobal {
		return nil
	}
	if callerCompanyID == nil || targetCompanyID == nil {
		return ErrForbidden
	}
	if *callerCompanyID != *targetCompanyID {
		return ErrForbidden
	}
	return nil
}

// CompanyGuard resolves a target company and checks the caller's scope
// against it.
type CompanyGuard struct {
	companies CompanyStore
}

// NewCompanyGuard constructs a guard over the company store.
func NewCompanyGuard(companies CompanyStore) *CompanyGuard {
	return &CompanyGuard{companies: companies}
}

// AssertCompanyAccess looks up the company and validates the caller's scope,
// returning the company for chaining. Existence is checked before scope so a
// non-existent id yields ErrNotFound even when out of scope; callers cannot
// use scope failures to probe for ids in other tenants.
func (g *CompanyGuard) AssertCompanyAccess(ctx context.Context, isGlobal bool, callerCompanyID *string, companyID string) (*Company, error) {
	company, err := g.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := AssertScope(isGlobal, callerCompanyID, &company.ID); err != nil {
		return nil, err
	}
	return company, nil
}
