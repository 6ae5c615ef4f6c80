package notify

import (
	"context"
	"testing"

	"github.com/adamscao/pic-certificates/internal/config"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*LogNotifier, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	n := NewLogNotifier(config.EmailConfig{From: "no-reply@pic.test", BaseURL: "https://pic.test"}, zap.New(core))
	return n, logs
}

func TestSendCertificateIssued(t *testing.T) {
	n, logs := newObserved()

	err := n.SendCertificateIssued(context.Background(), &models.Certificate{
		CertificateID:  "CERT-ABC-123456",
		RecipientEmail: "bob@example.com",
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("Certificate issued notification").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "bob@example.com", fields["to"])
	assert.Equal(t, "https://pic.test/verify/CERT-ABC-123456", fields["verify_url"])
}

func TestSendCertificateIssuedRequiresRecipient(t *testing.T) {
	n, _ := newObserved()
	assert.Error(t, n.SendCertificateIssued(context.Background(), &models.Certificate{CertificateID: "CERT-X"}))
}

func TestSendPasswordResetKeepsTokenOutOfInfo(t *testing.T) {
	n, logs := newObserved()

	err := n.SendPasswordReset(context.Background(), &models.User{Email: "alice@example.com"}, "secret-token")
	require.NoError(t, err)

	info := logs.FilterMessage("Password reset notification").All()
	require.Len(t, info, 1)
	for _, v := range info[0].ContextMap() {
		assert.NotContains(t, v, "secret-token")
	}
	assert.Equal(t, 1, logs.FilterMessage("Password reset link").Len())
}

func TestSendHonoursCancelledContext(t *testing.T) {
	n, _ := newObserved()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, n.SendPasswordReset(ctx, &models.User{Email: "a@b.c"}, "t"), context.Canceled)
}
