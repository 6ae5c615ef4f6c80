package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/adamscao/pic-certificates/internal/apperror"
)

// envelopeSeparator splits the hex nonce from the hex ciphertext
const envelopeSeparator = ":"

// ErrInvalidKeyLength is returned when the provided key is not 32 bytes
var ErrInvalidKeyLength = errors.New("encryption key must be 32 bytes")

// Encrypt seals data with AES-256-GCM under a random nonce and returns
// hex(nonce) + ":" + hex(ciphertext). Intended for values in transit or
// secondary secrets, never for passwords.
func Encrypt(data, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", apperror.Wrap(apperror.KindCrypto, apperror.CodeInternal, "failed to generate nonce", err)
	}

	ct := gcm.Seal(nil, nonce, data, nil)
	return hex.EncodeToString(nonce) + envelopeSeparator + hex.EncodeToString(ct), nil
}

// Decrypt opens an envelope produced by Encrypt. Tampered ciphertext and
// malformed envelopes fail with a DECRYPTION_ERROR.
func Decrypt(payload string, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(payload, envelopeSeparator)
	if len(parts) != 2 {
		return nil, apperror.Decryption(fmt.Errorf("malformed envelope"))
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, apperror.Decryption(fmt.Errorf("malformed nonce: %w", err))
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, apperror.Decryption(fmt.Errorf("nonce must be %d bytes", gcm.NonceSize()))
	}

	ct, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, apperror.Decryption(fmt.Errorf("malformed ciphertext: %w", err))
	}

	plaintext, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, apperror.Decryption(err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, apperror.Wrap(apperror.KindCrypto, apperror.CodeInternal, "invalid encryption key", ErrInvalidKeyLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindCrypto, apperror.CodeInternal, "failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindCrypto, apperror.CodeInternal, "failed to create GCM", err)
	}
	return gcm, nil
}
