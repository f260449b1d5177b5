package service

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies passwords. Implementations are pure.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Compare reports whether plain matches digest. Malformed digests do not match.
	Compare(plain, digest string) bool
	// CompareDummy burns the same work as Compare against a digest that
	// never matches, for slots where no record exists.
	CompareDummy(plain string)
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password cannot be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(plain, digest string) bool {
	if digest == "" {
		h.CompareDummy(plain)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

func (h *BcryptHasher) CompareDummy(plain string) {
	h.dummyOnce.Do(func() {
		// Generated once so the dummy carries the same cost as real digests.
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("no-account-has-this-password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}
