package common

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// MakeRandURLString returns size random bytes encoded as unpadded
// base64url, suitable for opaque bearer secrets.
//
// Example:
//
//	s, err := MakeRandURLString(48) // 64 characters
//
// It returns an error if the random number generator fails.
func MakeRandURLString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSHA256Hex returns the lowercase hex SHA-256 digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
