package certificate

import (
	"sync"

	"github.com/adamscao/pic-certificates/internal/models"
)

// MemoryStore keeps certificates in process, indexed by id and certificateId
type MemoryStore struct {
	mu            sync.RWMutex
	certificates  map[string]*models.Certificate
	byCertificate map[string]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		certificates:  make(map[string]*models.Certificate),
		byCertificate: make(map[string]string),
	}
}

// Get returns the certificate with id, nil when absent
func (s *MemoryStore) Get(id string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.certificates[id].Clone(), nil
}

// GetByCertificateID returns the certificate with the public id, nil when absent
func (s *MemoryStore) GetByCertificateID(certificateID string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCertificate[certificateID]
	if !ok {
		return nil, nil
	}
	return s.certificates[id].Clone(), nil
}

// Put stores a copy of cert
func (s *MemoryStore) Put(cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.certificates[cert.ID]; ok && old.CertificateID != cert.CertificateID {
		delete(s.byCertificate, old.CertificateID)
	}
	s.certificates[cert.ID] = cert.Clone()
	s.byCertificate[cert.CertificateID] = cert.ID
	return nil
}

// Delete removes the certificate with id
func (s *MemoryStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, ok := s.certificates[id]
	if !ok {
		return false, nil
	}
	delete(s.certificates, id)
	delete(s.byCertificate, cert.CertificateID)
	return true, nil
}

// List returns copies of every certificate in no particular order
func (s *MemoryStore) List() ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Certificate, 0, len(s.certificates))
	for _, cert := range s.certificates {
		out = append(out, cert.Clone())
	}
	return out, nil
}
