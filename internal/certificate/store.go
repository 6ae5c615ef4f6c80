package certificate

import "github.com/adamscao/pic-certificates/internal/models"

// Store persists certificates. Implementations return copies the caller may mutate.
type Store interface {
	Get(id string) (*models.Certificate, error)
	GetByCertificateID(certificateID string) (*models.Certificate, error)
	// Put inserts or replaces the certificate with the same id.
	Put(cert *models.Certificate) error
	// Delete reports whether a certificate was removed.
	Delete(id string) (bool, error)
	List() ([]*models.Certificate, error)
}
