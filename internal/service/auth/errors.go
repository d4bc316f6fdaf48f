package auth

import "errors"

var (
	ErrUserExists         = errors.New("name or email already registered")
	ErrInvalidCredentials = errors.New("invalid name or password")
	ErrUnauthorized       = errors.New("missing or expired session")
)
