package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	digits       = "0123456789"
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateNumericOTP returns a uniformly random numeric code of the given length
func GenerateNumericOTP(length int) (string, error) {
	return randomString(digits, length)
}

// GenerateAlphanumericOTP returns a uniformly random upper-case alphanumeric code
func GenerateAlphanumericOTP(length int) (string, error) {
	return randomString(alphanumeric, length)
}

// randomString samples each character with crypto/rand.Int, which rejects
// out-of-range values internally and so has no modulo bias.
func randomString(alphabet string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
