package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adamscao/pic-certificates/internal/models"
)

const certColumns = `id, certificate_id, owner_id, name, description, type, status,
	recipient_name, recipient_email, issue_date, expires_at, issued_at, revoked_at,
	revocation_reason, metadata, created_at, updated_at`

// CertRepository persists certificates; it satisfies certificate.Store
type CertRepository struct {
	db *sql.DB
}

// NewCertRepository creates a new certificate repository
func NewCertRepository(db *sql.DB) *CertRepository {
	return &CertRepository{db: db}
}

// Get returns the certificate with internal id, nil when absent
func (r *CertRepository) Get(id string) (*models.Certificate, error) {
	return r.getOne(`SELECT `+certColumns+` FROM certificates WHERE id = ?`, id)
}

// GetByCertificateID returns the certificate with public certificateId, nil when absent
func (r *CertRepository) GetByCertificateID(certificateID string) (*models.Certificate, error) {
	return r.getOne(`SELECT `+certColumns+` FROM certificates WHERE certificate_id = ?`, certificateID)
}

// Put inserts or replaces a certificate
func (r *CertRepository) Put(cert *models.Certificate) error {
	query := `
		INSERT INTO certificates (
			id, certificate_id, owner_id, name, description, type, status,
			recipient_name, recipient_email, issue_date, expires_at, issued_at, revoked_at,
			revocation_reason, metadata, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			type = excluded.type,
			status = excluded.status,
			recipient_name = excluded.recipient_name,
			recipient_email = excluded.recipient_email,
			issue_date = excluded.issue_date,
			expires_at = excluded.expires_at,
			issued_at = excluded.issued_at,
			revoked_at = excluded.revoked_at,
			revocation_reason = excluded.revocation_reason,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`

	metadata := cert.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = r.db.Exec(query,
		cert.ID,
		cert.CertificateID,
		cert.OwnerID,
		cert.Name,
		cert.Description,
		string(cert.Type),
		string(cert.Status),
		cert.RecipientName,
		cert.RecipientEmail,
		nullTime(cert.IssueDate),
		nullTime(cert.ExpiresAt),
		nullTime(cert.IssuedAt),
		nullTime(cert.RevokedAt),
		cert.RevocationReason,
		string(metadataJSON),
		cert.CreatedAt.UTC(),
		cert.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store certificate: %w", err)
	}

	return nil
}

// Delete removes a certificate and reports whether it existed
func (r *CertRepository) Delete(id string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM certificates WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete certificate: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n > 0, nil
}

// List returns every certificate
func (r *CertRepository) List() ([]*models.Certificate, error) {
	rows, err := r.db.Query(`SELECT ` + certColumns + ` FROM certificates ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()

	var certs []*models.Certificate
	for rows.Next() {
		cert, err := scanCert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		certs = append(certs, cert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	return certs, nil
}

func (r *CertRepository) getOne(query string, arg interface{}) (*models.Certificate, error) {
	cert, err := scanCert(r.db.QueryRow(query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return cert, nil
}

func scanCert(row rowScanner) (*models.Certificate, error) {
	cert := &models.Certificate{}
	var certType, status, metadata string
	var issueDate, expiresAt, issuedAt, revokedAt sql.NullTime

	err := row.Scan(
		&cert.ID,
		&cert.CertificateID,
		&cert.OwnerID,
		&cert.Name,
		&cert.Description,
		&certType,
		&status,
		&cert.RecipientName,
		&cert.RecipientEmail,
		&issueDate,
		&expiresAt,
		&issuedAt,
		&revokedAt,
		&cert.RevocationReason,
		&metadata,
		&cert.CreatedAt,
		&cert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cert.Type = models.CertificateType(certType)
	cert.Status = models.CertificateStatus(status)
	cert.IssueDate = timePtr(issueDate)
	cert.ExpiresAt = timePtr(expiresAt)
	cert.IssuedAt = timePtr(issuedAt)
	cert.RevokedAt = timePtr(revokedAt)

	cert.Metadata = map[string]interface{}{}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &cert.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	return cert, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
