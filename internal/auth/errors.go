// Package auth implements user credentials, bearer tokens and the access guard
// that protects mutating endpoints.
package auth

import "errors"

var (
	// ErrDuplicateIdentity is returned by Register when the username is taken.
	ErrDuplicateIdentity = errors.New("username already registered")
	// ErrInvalidCredentials covers both an unknown user and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned by the guard when a request carries no usable identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidToken is the single error for every token verification failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidInput is returned for an empty username or secret.
	ErrInvalidInput = errors.New("invalid input")
)
