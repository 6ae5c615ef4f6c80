package certificate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/audit"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/adamscao/pic-certificates/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const notifyTimeout = 30 * time.Second

// InputValidator checks certificate input before it is stored
type InputValidator interface {
	ValidateCreate(in models.CertificateInput) error
	ValidateUpdate(current *models.Certificate, in models.CertificateUpdate) error
}

// Engine owns the certificate lifecycle. Every mutation runs under one lock
// so concurrent readers never observe a partial update.
type Engine struct {
	mu        sync.Mutex
	store     Store
	validator InputValidator
	notifier  notify.Notifier
	sink      audit.Sink
	logger    *zap.Logger
	now       func() time.Time
	pending   sync.WaitGroup
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithValidator sets the input validator
func WithValidator(v InputValidator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithNotifier sets the notifier called after issue
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithSink sets the audit sink
func WithSink(s audit.Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// NewEngine creates a lifecycle engine over store
func NewEngine(store Store, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:  store,
		sink:   audit.Nop{},
		logger: logger.With(zap.String("component", "certificates")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create stores a new draft certificate
func (e *Engine) Create(in models.CertificateInput) (*models.Certificate, error) {
	if e.validator != nil {
		if err := e.validator.ValidateCreate(in); err != nil {
			return nil, err
		}
	}

	now := e.now()
	certificateID, err := GenerateCertificateID(now)
	if err != nil {
		return nil, apperror.Internal("failed to create certificate", err)
	}

	cert := &models.Certificate{
		ID:             uuid.NewString(),
		CertificateID:  certificateID,
		OwnerID:        in.OwnerID,
		Name:           in.Name,
		Description:    in.Description,
		Type:           in.Type,
		Status:         models.StatusDraft,
		RecipientName:  in.RecipientName,
		RecipientEmail: in.RecipientEmail,
		IssueDate:      in.IssueDate,
		ExpiresAt:      in.ExpiresAt,
		Metadata:       in.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if cert.Metadata == nil {
		cert.Metadata = map[string]interface{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Put(cert); err != nil {
		return nil, fmt.Errorf("failed to store certificate: %w", err)
	}

	e.sink.Log(models.EventCertificateCreated, map[string]interface{}{
		"certificate_id": cert.CertificateID,
		"owner_id":       cert.OwnerID,
	})
	return cert.Clone(), nil
}

// Get returns the certificate with internal id
func (e *Engine) Get(id string) (*models.Certificate, error) {
	cert, err := e.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	if cert == nil {
		return nil, apperror.NotFound("Certificate not found")
	}
	return cert, nil
}

// GetByCertificateID returns the certificate with public certificateId
func (e *Engine) GetByCertificateID(certificateID string) (*models.Certificate, error) {
	cert, err := e.store.GetByCertificateID(certificateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	if cert == nil {
		return nil, apperror.NotFound("Certificate not found")
	}
	return cert, nil
}

// Update merges the non-nil fields of in
func (e *Engine) Update(id string, in models.CertificateUpdate) (*models.Certificate, error) {
	return e.mutate(id, func(cert *models.Certificate) error {
		if e.validator != nil {
			if err := e.validator.ValidateUpdate(cert, in); err != nil {
				return err
			}
		}

		if in.Name != nil {
			cert.Name = *in.Name
		}
		if in.Description != nil {
			cert.Description = *in.Description
		}
		if in.Type != nil {
			cert.Type = *in.Type
		}
		if in.RecipientName != nil {
			cert.RecipientName = *in.RecipientName
		}
		if in.RecipientEmail != nil {
			cert.RecipientEmail = *in.RecipientEmail
		}
		if in.IssueDate != nil {
			cert.IssueDate = in.IssueDate
		}
		if in.ExpiresAt != nil {
			cert.ExpiresAt = in.ExpiresAt
		}
		if in.Metadata != nil {
			cert.Metadata = in.Metadata
		}
		return nil
	})
}

// Issue marks the certificate issued and notifies the recipient in the
// background. Issuing an issued certificate refreshes issuedAt.
func (e *Engine) Issue(id string) (*models.Certificate, error) {
	cert, err := e.mutate(id, func(cert *models.Certificate) error {
		if cert.Status == models.StatusRevoked {
			return apperror.Conflict("Revoked certificates cannot be issued")
		}
		now := e.now()
		cert.Status = models.StatusIssued
		cert.IssuedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.sink.Log(models.EventCertificateIssued, map[string]interface{}{
		"certificate_id": cert.CertificateID,
		"owner_id":       cert.OwnerID,
	})

	if cert.RecipientEmail != "" && e.notifier != nil {
		e.notifyIssued(cert.Clone())
	}
	return cert, nil
}

// Revoke marks the certificate revoked from any status. The first
// revocation time and reason are kept on repeated calls.
func (e *Engine) Revoke(id, reason string) (*models.Certificate, error) {
	revoked := false
	cert, err := e.mutate(id, func(cert *models.Certificate) error {
		if cert.Status == models.StatusRevoked {
			return errUnchanged
		}
		now := e.now()
		cert.Status = models.StatusRevoked
		cert.RevokedAt = &now
		cert.RevocationReason = reason
		revoked = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if revoked {
		e.sink.Log(models.EventCertificateRevoked, map[string]interface{}{
			"certificate_id": cert.CertificateID,
			"owner_id":       cert.OwnerID,
			"reason":         reason,
		})
	}
	return cert, nil
}

// Delete removes the certificate permanently
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cert, err := e.store.Get(id)
	if err != nil {
		return fmt.Errorf("failed to get certificate: %w", err)
	}
	if cert == nil {
		return apperror.NotFound("Certificate not found")
	}

	deleted, err := e.store.Delete(id)
	if err != nil {
		return fmt.Errorf("failed to delete certificate: %w", err)
	}
	if !deleted {
		return apperror.NotFound("Certificate not found")
	}

	e.sink.Log(models.EventCertificateDeleted, map[string]interface{}{
		"certificate_id": cert.CertificateID,
		"owner_id":       cert.OwnerID,
	})
	return nil
}

// Wait blocks until background notifications have finished
func (e *Engine) Wait() {
	e.pending.Wait()
}

// errUnchanged aborts a mutation without storing and without failing
var errUnchanged = errors.New("unchanged")

func (e *Engine) mutate(id string, apply func(*models.Certificate) error) (*models.Certificate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cert, err := e.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	if cert == nil {
		return nil, apperror.NotFound("Certificate not found")
	}

	if err := apply(cert); err != nil {
		if errors.Is(err, errUnchanged) {
			return cert, nil
		}
		return nil, err
	}

	cert.UpdatedAt = e.now()
	if err := e.store.Put(cert); err != nil {
		return nil, fmt.Errorf("failed to store certificate: %w", err)
	}
	return cert.Clone(), nil
}

func (e *Engine) notifyIssued(cert *models.Certificate) {
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := e.notifier.SendCertificateIssued(ctx, cert); err != nil {
			e.logger.Warn("Failed to send certificate issued notification",
				zap.String("certificate_id", cert.CertificateID),
				zap.Error(err))
			e.sink.Log(models.EventNotificationFailed, map[string]interface{}{
				"certificate_id": cert.CertificateID,
				"error":          err.Error(),
			})
		}
	}()
}
