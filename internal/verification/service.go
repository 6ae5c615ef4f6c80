package verification

import (
	"time"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/models"
	"go.uber.org/zap"
)

// Failure messages, in precedence order
const (
	MsgNotFound  = "Certificate not found"
	MsgRevoked   = "Certificate has been revoked"
	MsgNotIssued = "Certificate has not been issued yet"
	MsgExpired   = "Certificate has expired"
)

// Result values reported to the recorder
const (
	ResultValid    = "valid"
	ResultNotFound = "not_found"
	ResultRevoked  = "revoked"
	ResultDraft    = "not_issued"
	ResultExpired  = "expired"
	ResultError    = "error"
)

// Lookup finds certificates by their public certificateId
type Lookup interface {
	GetByCertificateID(certificateID string) (*models.Certificate, error)
}

// Recorder observes verification outcomes
type Recorder interface {
	Verification(result string)
}

// Result is the outcome of a verification
type Result struct {
	IsValid     bool                `json:"isValid"`
	Certificate *models.Certificate `json:"certificate,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Service answers whether a certificate is currently valid
type Service struct {
	lookup   Lookup
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRecorder sets the outcome recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// NewService creates a verification service
func NewService(lookup Lookup, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		lookup: lookup,
		logger: logger.With(zap.String("component", "verification")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify checks a certificate. Revocation outranks a missing issue, which
// outranks expiry. Failures are reported in the result, never as an error.
func (s *Service) Verify(certificateID string) Result {
	cert, err := s.lookup.GetByCertificateID(certificateID)
	if err != nil && !apperror.Is(err, apperror.KindNotFound) {
		s.logger.Error("Certificate lookup failed",
			zap.String("certificate_id", certificateID),
			zap.Error(err))
		s.record(ResultError)
		return Result{IsValid: false, Error: MsgNotFound}
	}
	if cert == nil {
		s.record(ResultNotFound)
		return Result{IsValid: false, Error: MsgNotFound}
	}

	switch {
	case cert.Status == models.StatusRevoked:
		s.record(ResultRevoked)
		return Result{IsValid: false, Certificate: cert, Error: MsgRevoked}
	case cert.Status == models.StatusDraft:
		s.record(ResultDraft)
		return Result{IsValid: false, Certificate: cert, Error: MsgNotIssued}
	case cert.IsExpired(s.now()):
		s.record(ResultExpired)
		return Result{IsValid: false, Certificate: cert, Error: MsgExpired}
	}

	s.record(ResultValid)
	return Result{IsValid: true, Certificate: cert}
}

func (s *Service) record(result string) {
	if s.recorder != nil {
		s.recorder.Verification(result)
	}
}
