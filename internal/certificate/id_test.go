package certificate

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var certificateIDPattern = regexp.MustCompile(`^CERT-[0-9A-Z]+-[0-9A-Z]{6}$`)

func TestGenerateCertificateIDFormat(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	id, err := GenerateCertificateID(now)
	require.NoError(t, err)

	assert.Regexp(t, certificateIDPattern, id)
	assert.Contains(t, id, "CERT-LOYW3V28-")
}

// Uniqueness is probabilistic; 10k draws across real time collide with
// negligible probability.
func TestGenerateCertificateIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := GenerateCertificateID(time.Now())
		require.NoError(t, err)
		require.Regexp(t, certificateIDPattern, id)

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
