package utils

import "golang.org/x/crypto/bcrypt"

// PasswordHasher hashes and verifies passwords with bcrypt at a fixed cost.
type PasswordHasher struct {
	Cost int
}

// Hash returns the bcrypt hash of plain.
func (h PasswordHasher) Hash(plain string) (string, error) {
	return HashPassword(plain, h.Cost)
}

// Verify reports whether plain matches hash.
func (h PasswordHasher) Verify(plain, hash string) bool {
	return VerifyPassword(hash, plain)
}

// HashPassword returns bcrypt hash using the given cost.  Out of range
// costs fall back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
