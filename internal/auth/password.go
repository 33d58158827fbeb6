// Package auth holds the credential primitives: password hashing and
// the session token codec. Both are deliberately small so the signing
// and hashing schemes can be swapped without touching callers.
package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher is a one-way transform from plaintext password to a
// stored hash, with a matching verifier.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// BcryptHasher hashes passwords with bcrypt. Each hash carries its own
// random salt, so equal passwords never collide to equal hashes.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{cost: bcrypt.DefaultCost}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
