// Package crypto provides the random tokens and content digests used by the dashboard.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// TokenBytes is the entropy of a session token.
const TokenBytes = 32

// DigestSize is the byte length of a SHA-256 digest.
const DigestSize = 32

// ErrInvalidHexDigest indicates the hex digest is malformed or wrong length.
var ErrInvalidHexDigest = errors.New("invalid hex digest: must be 64 hex characters (32 bytes)")

// GenerateToken returns n random bytes encoded as unpadded URL-safe base64.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateSessionToken returns a new unguessable session token.
func GenerateSessionToken() (string, error) {
	return GenerateToken(TokenBytes)
}

// ParseHexDigest normalises a SHA-256 hex digest.
// Surrounding whitespace and letter case are ignored.
func ParseHexDigest(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != DigestSize*2 {
		return "", ErrInvalidHexDigest
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHexDigest, err)
	}
	return s, nil
}
