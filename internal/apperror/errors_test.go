package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := NotFound("certificate not found")
	wrapped := fmt.Errorf("failed to load: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestKindOfUnclassified(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.False(t, Is(nil, KindInternal))
}

func TestRateLimitError(t *testing.T) {
	err := fmt.Errorf("login: %w", &RateLimitError{RetryAfter: 3})

	assert.Equal(t, KindRateLimit, KindOf(err))
	assert.Equal(t, CodeRateLimitExceeded, CodeOf(err))
	assert.Contains(t, err.Error(), "3 seconds")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cipher: message authentication failed")
	err := Decryption(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindCrypto, err.Kind)
	assert.Equal(t, "decryption failed: cipher: message authentication failed", err.Error())
}
