package auth

import "errors"

var (
	// ErrValidation marks a registration input rejected by a policy hook.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password, so a caller cannot tell which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrStaleTokenVersion marks a refresh token whose version snapshot no
	// longer matches the user's counter. Never shown to clients; the
	// refresh flow reports a uniform denial.
	ErrStaleTokenVersion = errors.New("stale token version")
)
