package verification

import (
	"errors"
	"testing"
	"time"

	"github.com/adamscao/pic-certificates/internal/certificate"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type countingRecorder map[string]int

func (c countingRecorder) Verification(result string) { c[result]++ }

type mapLookup map[string]*models.Certificate

func (m mapLookup) GetByCertificateID(id string) (*models.Certificate, error) {
	return m[id], nil
}

type failingLookup struct{}

func (failingLookup) GetByCertificateID(string) (*models.Certificate, error) {
	return nil, errors.New("database is locked")
}

func at(t time.Time) *time.Time { return &t }

func TestVerifyPrecedence(t *testing.T) {
	past := at(testNow.Add(-time.Hour))
	future := at(testNow.Add(time.Hour))

	lookup := mapLookup{
		"revoked-expired": {Status: models.StatusRevoked, ExpiresAt: past},
		"draft-expired":   {Status: models.StatusDraft, ExpiresAt: past},
		"issued-expired":  {Status: models.StatusIssued, ExpiresAt: past},
		"issued-future":   {Status: models.StatusIssued, ExpiresAt: future},
		"issued-forever":  {Status: models.StatusIssued},
		"issued-boundary": {Status: models.StatusIssued, ExpiresAt: at(testNow)},
	}

	tests := []struct {
		id    string
		valid bool
		err   string
	}{
		{"missing", false, MsgNotFound},
		{"revoked-expired", false, MsgRevoked},
		{"draft-expired", false, MsgNotIssued},
		{"issued-expired", false, MsgExpired},
		{"issued-future", true, ""},
		{"issued-forever", true, ""},
		{"issued-boundary", true, ""},
	}

	recorder := countingRecorder{}
	svc := NewService(lookup, zap.NewNop(), WithClock(func() time.Time { return testNow }), WithRecorder(recorder))

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			res := svc.Verify(tt.id)
			assert.Equal(t, tt.valid, res.IsValid)
			assert.Equal(t, tt.err, res.Error)
			if tt.id == "missing" {
				assert.Nil(t, res.Certificate)
			} else {
				assert.NotNil(t, res.Certificate)
			}
		})
	}

	assert.Equal(t, 3, recorder[ResultValid])
	assert.Equal(t, 1, recorder[ResultRevoked])
}

func TestVerifyLookupErrorIsNotFound(t *testing.T) {
	recorder := countingRecorder{}
	svc := NewService(failingLookup{}, zap.NewNop(), WithRecorder(recorder))

	res := svc.Verify("CERT-X")
	assert.False(t, res.IsValid)
	assert.Equal(t, MsgNotFound, res.Error)
	assert.Equal(t, 1, recorder[ResultError])
}

func TestEndToEndLifecycle(t *testing.T) {
	engine := certificate.NewEngine(certificate.NewMemoryStore(), zap.NewNop())
	svc := NewService(engine, zap.NewNop())

	cert, err := engine.Create(models.CertificateInput{OwnerID: "42", Name: "Course A", Type: models.TypeCompletion})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, cert.Status)

	issued, err := engine.Issue(cert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIssued, issued.Status)
	assert.NotNil(t, issued.IssuedAt)

	res := svc.Verify(cert.CertificateID)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Error)

	revoked, err := engine.Revoke(cert.ID, "policy violation")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevoked, revoked.Status)

	res = svc.Verify(cert.CertificateID)
	assert.False(t, res.IsValid)
	assert.Equal(t, "Certificate has been revoked", res.Error)

	res = svc.Verify(cert.ID)
	assert.Equal(t, MsgNotFound, res.Error)
}
