package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/trongquochuydinh/semester-project/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Accounts() AccountStore  { return &accountStore{db: s.db} }
func (s *PGStore) Roles() RoleStore        { return &roleStore{db: s.db} }
func (s *PGStore) Companies() CompanyStore { return &companyStore{db: s.db} }
func (s *PGStore) Links() LinkStore        { return &linkStore{db: s.db} }

const accountColumns = `id, username, email, password_hash, is_active, status, last_login_at, session_marker, role_id, company_id, created_at, updated_at`

// Account store -------------------------------------------------------------
type accountStore struct{ db *sql.DB }

func (s *accountStore) FindByID(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id=$1`, id)
	return scanAccount(row)
}

func (s *accountStore) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where username=$1 or email=$1`, strings.TrimSpace(identifier))
	return scanAccount(row)
}

// ClaimSession is the atomic check-and-set behind single-session enforcement:
// the marker is only written when none is present, so concurrent logins for
// the same account cannot both succeed.
func (s *accountStore) ClaimSession(ctx context.Context, accountID, marker string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts
		 set session_marker=$2, status=$3, last_login_at=$4, updated_at=now()
		 where id=$1 and session_marker is null`,
		accountID, marker, StatusOnline, at,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 1 {
		return nil
	}
	var existing sql.NullString
	err = s.db.QueryRowContext(ctx, `select session_marker from accounts where id=$1`, accountID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyLoggedIn
}

func (s *accountStore) ClearSession(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx,
		`update accounts set session_marker=null, status=$2, updated_at=now() where id=$1`,
		accountID, StatusOffline,
	)
	return err
}

func (s *accountStore) SetActive(ctx context.Context, accountID string, active bool) error {
	// Disabling force-clears the session in the same statement.
	res, err := s.db.ExecContext(ctx,
		`update accounts
		 set is_active=$2,
		     session_marker=case when $2 then session_marker else null end,
		     status=case when $2 then status else $3 end,
		     updated_at=now()
		 where id=$1`,
		accountID, active, StatusOffline,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *accountStore) UpdateRole(ctx context.Context, accountID, roleID string) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts set role_id=$2, updated_at=now() where id=$1`,
		accountID, roleID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		a         Account
		lastLogin sql.NullTime
		marker    sql.NullString
		companyID sql.NullString
	)
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Active, &a.Status,
		&lastLogin, &marker, &a.RoleID, &companyID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	if marker.Valid {
		v := marker.String
		a.SessionMarker = &v
	}
	if companyID.Valid {
		v := companyID.String
		a.CompanyID = &v
	}
	return &a, nil
}

// Role store ----------------------------------------------------------------
type roleStore struct{ db *sql.DB }

func (s *roleStore) FindByID(ctx context.Context, id string) (Role, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, rank, created_at from roles where id=$1`, id)
	return scanRole(row)
}

func (s *roleStore) FindByName(ctx context.Context, name string) (Role, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, rank, created_at from roles where name=$1`, name)
	return scanRole(row)
}

func (s *roleStore) List(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, rank, created_at from roles order by rank asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Rank, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanRole(row rowScanner) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Rank, &role.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// Company store -------------------------------------------------------------
type companyStore struct{ db *sql.DB }

func (s *companyStore) FindByID(ctx context.Context, id string) (*Company, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, created_at from companies where id=$1`, id)
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Link store ----------------------------------------------------------------
type linkStore struct{ db *sql.DB }

func (s *linkStore) FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*LinkedAccount, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, account_id, provider, provider_user_id, provider_email, created_at
		 from linked_accounts where provider=$1 and provider_user_id=$2`,
		provider, providerUserID,
	)
	var l LinkedAccount
	err := row.Scan(&l.ID, &l.AccountID, &l.Provider, &l.ProviderUserID, &l.ProviderEmail, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *linkStore) Create(ctx context.Context, link *LinkedAccount) error {
	if link.ID == "" {
		link.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into linked_accounts(id, account_id, provider, provider_user_id, provider_email)
		 values($1,$2,$3,$4,$5)`,
		link.ID, link.AccountID, link.Provider, link.ProviderUserID, link.ProviderEmail,
	)
	if err != nil && strings.Contains(err.Error(), "linked_accounts_provider_identity") {
		return ErrAlreadyLinked
	}
	return err
}

func (s *linkStore) ProvidersForAccount(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select provider from linked_accounts where account_id=$1 order by provider`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}
