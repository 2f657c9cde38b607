package security

import (
	"crypto/rand"
	"encoding/hex"
)

// StateGenerator produces the anti-forgery state values bound to OAuth
// redirects. Values are cryptographically random and stored server-side on the
// pending session; verification is a database lookup, not a signature check.
type StateGenerator struct{}

// NewStateGenerator creates a new OAuth state generator.
func NewStateGenerator() *StateGenerator {
	return &StateGenerator{}
}

// Generate creates a cryptographically secure random state value (256 bits),
// returned as a 64-character hex string.
func (g *StateGenerator) Generate() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}
