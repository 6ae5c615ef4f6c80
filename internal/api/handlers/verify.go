package handlers

import (
	"time"

	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/adamscao/pic-certificates/internal/verification"
	"github.com/gin-gonic/gin"
)

// VerifyHandler serves public certificate verification
type VerifyHandler struct {
	verifier *verification.Service
}

// NewVerifyHandler creates a new verify handler
func NewVerifyHandler(verifier *verification.Service) *VerifyHandler {
	return &VerifyHandler{verifier: verifier}
}

// PublicCertificate is the certificate as shown to anonymous verifiers;
// owner and recipient email are withheld
type PublicCertificate struct {
	CertificateID    string                   `json:"certificateId"`
	Name             string                   `json:"name"`
	Description      string                   `json:"description,omitempty"`
	Type             models.CertificateType   `json:"type"`
	Status           models.CertificateStatus `json:"status"`
	RecipientName    string                   `json:"recipientName,omitempty"`
	IssueDate        *time.Time               `json:"issueDate,omitempty"`
	ExpiresAt        *time.Time               `json:"expiresAt,omitempty"`
	IssuedAt         *time.Time               `json:"issuedAt,omitempty"`
	RevokedAt        *time.Time               `json:"revokedAt,omitempty"`
	RevocationReason string                   `json:"revocationReason,omitempty"`
}

// VerifyResponse is the public verification result
type VerifyResponse struct {
	IsValid     bool               `json:"isValid"`
	Certificate *PublicCertificate `json:"certificate,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Verify reports whether a certificate is currently valid
// GET /v1/verify/:certificateId
func (h *VerifyHandler) Verify(c *gin.Context) {
	res := h.verifier.Verify(c.Param("certificateId"))

	resp := VerifyResponse{IsValid: res.IsValid, Error: res.Error}
	if res.Certificate != nil {
		resp.Certificate = publicView(res)
	}
	RespondSuccess(c, resp)
}

// publicView derives the displayed status from the verification outcome so
// both are judged at the same instant
func publicView(res verification.Result) *PublicCertificate {
	cert := res.Certificate
	status := cert.Status
	if res.Error == verification.MsgExpired {
		status = models.StatusExpired
	}
	return &PublicCertificate{
		CertificateID:    cert.CertificateID,
		Name:             cert.Name,
		Description:      cert.Description,
		Type:             cert.Type,
		Status:           status,
		RecipientName:    cert.RecipientName,
		IssueDate:        cert.IssueDate,
		ExpiresAt:        cert.ExpiresAt,
		IssuedAt:         cert.IssuedAt,
		RevokedAt:        cert.RevokedAt,
		RevocationReason: cert.RevocationReason,
	}
}
