package auth

import (
	"errors"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor
const PasswordCost = 12

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(plaintext string) (string, error) {
	// bcrypt only looks at the first 72 bytes; longer input is truncated
	// rather than rejected so the input shape never fails hashing.
	input := []byte(plaintext)
	if len(input) > 72 {
		input = input[:72]
	}

	hash, err := bcrypt.GenerateFromPassword(input, PasswordCost)
	if err != nil {
		return "", apperror.Hashing(err)
	}
	return string(hash), nil
}

// ComparePassword reports whether plaintext matches hash. A mismatch is not an
// error; a malformed hash is.
func ComparePassword(plaintext, hash string) (bool, error) {
	input := []byte(plaintext)
	if len(input) > 72 {
		input = input[:72]
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), input)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, apperror.Hashing(err)
}
