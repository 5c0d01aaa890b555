package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	// Authentication errors
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")

	// Configuration errors
	ErrWeakSecret = errors.New("auth: signing secret too short")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")
)
