// Package password wraps bcrypt behind the credential-hashing contract used
// by the session service.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// hashCost is deliberately above bcrypt.DefaultCost; registration pays the
// price once, every login verification pays it again.
const hashCost = 12

// ErrHash is the opaque failure returned when hashing itself fails. The
// underlying cause is not exposed so a malformed stored hash is
// indistinguishable from any other internal fault.
var ErrHash = errors.New("password comparison failed")

// Hasher produces and verifies salted bcrypt hashes.
type Hasher struct {
	cost int
}

func NewHasher() *Hasher {
	return &Hasher{cost: hashCost}
}

// Hash returns the bcrypt hash of plaintext with a per-call random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", ErrHash
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. bcrypt performs
// the comparison in constant time against the decoded digest; malformed
// hashes simply fail verification.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
