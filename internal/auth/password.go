// Package auth holds the credential primitives behind the session manager:
// bcrypt password hashing, signed session tokens, and the identity marker
// that remembers the last signed-in user between runs.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords with bcrypt.
// A zero Cost uses bcrypt.DefaultCost.
type Hasher struct {
	Cost int
}

// Hash returns the bcrypt hash of password.
func (h Hasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth.Hasher.Hash: %w", err)
	}
	return string(hash), nil
}

// Check reports whether password matches hash. A malformed hash is a mismatch.
func (h Hasher) Check(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
