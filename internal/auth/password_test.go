package auth

import (
	"strings"
	"testing"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("Correct#Horse9")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)

	ok, err := ComparePassword("Correct#Horse9", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePassword("Correct#Horse8", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordLongInput(t *testing.T) {
	long := strings.Repeat("a", 100)
	hash, err := HashPassword(long)
	require.NoError(t, err)

	ok, err := ComparePassword(long, hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestComparePasswordMalformedHash(t *testing.T) {
	ok, err := ComparePassword("anything", "not-a-bcrypt-hash")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeHashing, apperror.CodeOf(err))
}
