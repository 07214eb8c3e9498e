package types

import "time"

// User represents a registered account in the system.
// It contains identity, profile, and audit metadata.
type User struct {
	// ID is the unique identifier of the user. It is assigned at
	// registration and never changes.
	ID string `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. Lookups are case-insensitive
	// and uniqueness is enforced by the database.
	Email string `json:"email" db:"email"`

	// Gender is a free-text gender string supplied at registration.
	Gender string `json:"gender" db:"gender"`

	// AboutMe is a free-text biography.
	AboutMe string `json:"aboutMe" db:"about_me"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
