package types

import "time"

// User represents an account in the system.
// Accounts are identified by email and own zero or more business cards.
type User struct {
	// ID is the unique identifier of the user, assigned by the database.
	ID int64 `json:"id" db:"id"`

	// Email is the unique address the user signs in with.
	// Stored case-sensitively.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
