// Package user defines the user model used throughout the application,
// particularly for registration, authentication and link ownership.
package user

// User represents a registered account.
// The record is immutable after registration and is never deleted.
type User struct {
	// ID is the unique identifier of the user, a short generated token.
	ID string `json:"id"`

	// Email is unique across all users; matching is case-sensitive,
	// exactly as stored.
	Email string `json:"email"`

	// PasswordHash is the salted one-way bcrypt digest of the password.
	// The raw password is never stored. API responses use dedicated
	// payload types, so the digest only ever reaches the storage file.
	PasswordHash string `json:"password_hash"`
}
