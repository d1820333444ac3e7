package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountDisabled    = errors.New("auth: account disabled")
	ErrAlreadyLoggedIn    = errors.New("auth: already logged in")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenInvalid       = errors.New("auth: invalid token")
	ErrForbidden          = errors.New("auth: forbidden")
	ErrNotFound           = errors.New("auth: not found")
	ErrRoleNotFound       = errors.New("auth: role not found")
	ErrStateInvalid       = errors.New("auth: oauth state invalid")
	ErrAlreadyLinked      = errors.New("auth: provider account already linked")
)
