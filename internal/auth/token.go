// Package auth implements opaque session tokens: random bearer strings whose
// validity is recorded only in the sessions table. There is no signature and
// no stateless verification; revoking a session on the server immediately
// invalidates its token.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes is the entropy of a session token. 32 bytes gives 256 bits.
const tokenBytes = 32

// NewToken returns a cryptographically random, URL-safe session token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
