package auth

import (
	"errors"
	"strings"
)

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password, so responses never reveal whether an account exists.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidToken is returned when a bearer token is malformed, carries a
// bad signature, is expired, or names the wrong issuer or audience.
var ErrInvalidToken = errors.New("invalid token")

// ErrMissingToken is returned when no bearer token accompanies the request.
var ErrMissingToken = errors.New("token is missing")

// ValidationError collects one message per violated field-level rule.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}
