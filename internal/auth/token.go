package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	// DefaultTokenBytes is the default length of opaque secure tokens
	DefaultTokenBytes = 32 // 32 bytes = 256 bits
)

// GenerateSecureToken returns byteLength random bytes hex-encoded
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenBytes
	}

	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return hex.EncodeToString(bytes), nil
}

// Fingerprint returns the hex SHA-256 digest of input, used to log or index
// secrets without storing them
func Fingerprint(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// FingerprintMatches compares input against a stored fingerprint in constant time
func FingerprintMatches(input, storedFingerprint string) bool {
	actual := Fingerprint(input)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(storedFingerprint)) == 1
}
