// Package hasher wraps one-way salted password hashing behind a small
// interface so the user directory stays independent of the algorithm.
package hasher

import "golang.org/x/crypto/bcrypt"

// PasswordHasher hashes raw passwords and verifies them against digests.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(raw, digest string) bool
}

// Bcrypt is the default PasswordHasher.
type Bcrypt struct {
	cost int
}

// New returns a Bcrypt hasher with the default cost.
func New() *Bcrypt {
	return &Bcrypt{cost: bcrypt.DefaultCost}
}

// Hash returns the salted bcrypt digest of raw.
func (h *Bcrypt) Hash(raw string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", err
	}

	return string(digest), nil
}

// Verify reports whether raw matches digest.
func (h *Bcrypt) Verify(raw, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(raw)) == nil
}
