package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PasswordIterations is the PBKDF2-HMAC-SHA256 work factor.
	PasswordIterations = 100_000
	// PasswordKeyLength is the derived key size in bytes.
	PasswordKeyLength = 32

	passwordSaltBytes = 16
)

// HashPassword derives a digest of the form "salt:base64(key)" where salt
// is a fresh random hex string.
func HashPassword(plain string) (string, error) {
	salt, err := randomHex(passwordSaltBytes)
	if err != nil {
		return "", err
	}
	key := derive(plain, salt)
	return salt + ":" + base64.StdEncoding.EncodeToString(key), nil
}

// VerifyPassword recomputes the key with the stored salt and compares it in
// constant time. Malformed digests never verify.
func VerifyPassword(digest, plain string) bool {
	salt, encoded, ok := strings.Cut(digest, ":")
	if !ok || salt == "" {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(want) != PasswordKeyLength {
		return false
	}
	return subtle.ConstantTimeCompare(derive(plain, salt), want) == 1
}

func derive(plain, salt string) []byte {
	return pbkdf2.Key([]byte(plain), []byte(salt), PasswordIterations, PasswordKeyLength, sha256.New)
}
