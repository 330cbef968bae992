package auth

import "errors"

// Sentinel errors for accounts and tokens. Callers match with errors.Is.
var (
	// ErrUserNotFound indicates no user matches the identifier.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrEmailExists indicates the email address is already registered.
	ErrEmailExists = errors.New("auth: email already registered")

	// ErrInvalidCredentials indicates a failed email/password check.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken indicates a JWT that failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrWrongTokenRole indicates a valid JWT presented on an endpoint
	// reserved for the other role.
	ErrWrongTokenRole = errors.New("auth: wrong token role")
)
