// Package credential hashes and verifies user passwords.
package credential

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for stored passwords.
const DefaultCost = bcrypt.DefaultCost

// Hasher hashes passwords with a fixed bcrypt cost.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher using cost, or DefaultCost when cost is out of range.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return Hasher{Cost: cost}
}

// Hash returns a salted bcrypt hash of password.
func (h Hasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. Malformed hashes never match.
func (Hasher) Verify(password, hash string) bool {
	return Verify(password, hash)
}

// Hash hashes password with DefaultCost.
func Hash(password string) (string, error) {
	return Hasher{Cost: DefaultCost}.Hash(password)
}

// Verify compares password against hash in constant time.
func Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash is compared against when a username is unknown so that lookups
// for missing and existing users take the same time.
var (
	dummyOnce sync.Once
	dummyHash []byte
)

// Burn runs a throwaway comparison.
func Burn(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("warbler-timing-equalizer"), DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
