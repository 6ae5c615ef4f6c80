package auth

import (
	"bytes"
	"strings"
	"testing"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	payload, err := Encrypt([]byte("JBSWY3DPEHPK3PXP"), testKey)
	require.NoError(t, err)
	assert.Contains(t, payload, ":")

	plaintext, err := Decrypt(payload, testKey)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", string(plaintext))
}

func TestEncryptRandomizesNonce(t *testing.T) {
	a, err := Encrypt([]byte("same"), testKey)
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), testKey)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsTampering(t *testing.T) {
	payload, err := Encrypt([]byte("secret"), testKey)
	require.NoError(t, err)

	parts := strings.SplitN(payload, ":", 2)
	last := parts[1][len(parts[1])-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	tampered := parts[0] + ":" + parts[1][:len(parts[1])-1] + string(flipped)

	_, err = Decrypt(tampered, testKey)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeDecryption, apperror.CodeOf(err))
}

func TestDecryptRejectsMalformed(t *testing.T) {
	for _, payload := range []string{"", "abc", "zz:00", "00:zz", "0011:2233", "a:b:c"} {
		_, err := Decrypt(payload, testKey)
		require.Error(t, err, payload)
		assert.Equal(t, apperror.CodeDecryption, apperror.CodeOf(err), payload)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	payload, err := Encrypt([]byte("secret"), testKey)
	require.NoError(t, err)

	_, err = Decrypt(payload, bytes.Repeat([]byte{0x24}, 32))
	assert.Equal(t, apperror.CodeDecryption, apperror.CodeOf(err))
}

func TestEncryptInvalidKey(t *testing.T) {
	_, err := Encrypt([]byte("x"), []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}
