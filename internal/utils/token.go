package utils // package utils provides helpers for ids, bearer tokens and password digests

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// sessionTokenBytes is the entropy of a bearer token (64 hex chars).
const sessionTokenBytes = 32

// NewUID returns a fresh random user id.
func NewUID() string {
	return uuid.NewString()
}

// NewSessionToken returns a cryptographically random opaque bearer token.
// Only HashToken(token) is ever persisted.
func NewSessionToken() (string, error) {
	return randomHex(sessionTokenBytes)
}

// HashToken returns the SHA-256 hex digest of a raw bearer token. A leaked
// sessions table therefore cannot be replayed as bearer credentials.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns n bytes from crypto/rand, hex encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
