package models

import "time"

// CertificateType is the kind of achievement a certificate records
type CertificateType string

// Certificate types
const (
	TypeCompletion    CertificateType = "completion"
	TypeAchievement   CertificateType = "achievement"
	TypeParticipation CertificateType = "participation"
	TypeExcellence    CertificateType = "excellence"
)

// Valid reports whether t is a known certificate type
func (t CertificateType) Valid() bool {
	switch t {
	case TypeCompletion, TypeAchievement, TypeParticipation, TypeExcellence:
		return true
	}
	return false
}

// CertificateStatus is the stored lifecycle state
type CertificateStatus string

// Certificate statuses
const (
	StatusDraft   CertificateStatus = "draft"
	StatusIssued  CertificateStatus = "issued"
	StatusRevoked CertificateStatus = "revoked"
	// StatusExpired is derived from ExpiresAt and never stored.
	StatusExpired CertificateStatus = "expired"
)

// Certificate is an issuable certificate record
type Certificate struct {
	ID               string                 `json:"id"`
	CertificateID    string                 `json:"certificateId"`
	OwnerID          string                 `json:"ownerId"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description,omitempty"`
	Type             CertificateType        `json:"type"`
	Status           CertificateStatus      `json:"status"`
	RecipientName    string                 `json:"recipientName,omitempty"`
	RecipientEmail   string                 `json:"recipientEmail,omitempty"`
	IssueDate        *time.Time             `json:"issueDate,omitempty"`
	ExpiresAt        *time.Time             `json:"expiresAt,omitempty"`
	IssuedAt         *time.Time             `json:"issuedAt,omitempty"`
	RevokedAt        *time.Time             `json:"revokedAt,omitempty"`
	RevocationReason string                 `json:"revocationReason,omitempty"`
	Metadata         map[string]interface{} `json:"metadata"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// IsExpired reports whether ExpiresAt is set and lies before now
func (c *Certificate) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Clone returns a deep copy safe to hand to another goroutine
func (c *Certificate) Clone() *Certificate {
	if c == nil {
		return nil
	}
	out := *c
	out.IssueDate = cloneTime(c.IssueDate)
	out.ExpiresAt = cloneTime(c.ExpiresAt)
	out.IssuedAt = cloneTime(c.IssuedAt)
	out.RevokedAt = cloneTime(c.RevokedAt)
	if c.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CertificateInput holds the caller-supplied fields of a new certificate
type CertificateInput struct {
	OwnerID        string                 `json:"ownerId"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	Type           CertificateType        `json:"type"`
	RecipientName  string                 `json:"recipientName"`
	RecipientEmail string                 `json:"recipientEmail"`
	IssueDate      *time.Time             `json:"issueDate"`
	ExpiresAt      *time.Time             `json:"expiresAt"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// CertificateUpdate is a partial update; nil fields are left unchanged.
// Status changes only through issue and revoke.
type CertificateUpdate struct {
	Name           *string                `json:"name"`
	Description    *string                `json:"description"`
	Type           *CertificateType       `json:"type"`
	RecipientName  *string                `json:"recipientName"`
	RecipientEmail *string                `json:"recipientEmail"`
	IssueDate      *time.Time             `json:"issueDate"`
	ExpiresAt      *time.Time             `json:"expiresAt"`
	Metadata       map[string]interface{} `json:"metadata"`
}
