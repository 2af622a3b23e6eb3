package services

import "errors"

var (
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("access restricted")
	// ErrInvalidInput is returned for requests that cannot be processed as sent.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned by login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for missing, invalid, expired or revoked tokens.
	ErrUnauthorized = errors.New("unauthorized")
)
