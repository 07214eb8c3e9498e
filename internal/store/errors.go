package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an insert or update collides with
// the unique index on LOWER(email).
var ErrDuplicateEmail = errors.New("email already taken")
