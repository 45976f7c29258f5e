package auth

import "errors"

var (
	ErrEmailPasswordDisabled = errors.New("email and password sign-in is disabled")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrUserExists            = errors.New("user already exists")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrPasswordTooShort      = errors.New("password too short")
	ErrPasswordTooLong       = errors.New("password too long")
	ErrSessionNotFound       = errors.New("session not found")
	ErrInvalidToken          = errors.New("invalid session token")
)
