package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Verification("valid")
	m.Verification("valid")
	m.Verification("revoked")
	m.RateLimited("/v1/auth/login")
	m.Log("login_failed", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.verifications.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("revoked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("/v1/auth/login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.securityEvents.WithLabelValues("login_failed")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Verification("valid")
	m.ObserveRequest("GET", "/health", "200", 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pic_certificates_verifications_total{result="valid"} 1`)
	assert.Contains(t, string(body), "pic_certificates_http_request_duration_seconds_bucket")
}
