package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/adamscao/pic-certificates/internal/account"
	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/certificate"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/adamscao/pic-certificates/internal/token"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CertHandler handles the certificate lifecycle for authenticated users
type CertHandler struct {
	engine *certificate.Engine
}

// NewCertHandler creates a new certificate handler
func NewCertHandler(engine *certificate.Engine) *CertHandler {
	return &CertHandler{engine: engine}
}

// CreateCertificateRequest represents a certificate creation request
type CreateCertificateRequest struct {
	OwnerID        string                 `json:"ownerId"`
	Name           string                 `json:"name" binding:"required"`
	Description    string                 `json:"description"`
	Type           models.CertificateType `json:"type" binding:"required"`
	RecipientName  string                 `json:"recipientName"`
	RecipientEmail string                 `json:"recipientEmail"`
	IssueDate      *time.Time             `json:"issueDate"`
	ExpiresAt      *time.Time             `json:"expiresAt"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// RevokeRequest carries the revocation reason
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// ListResponse is one page of certificates
type ListResponse struct {
	Items  []*models.Certificate `json:"items"`
	Total  int                   `json:"total"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

// Create creates a draft certificate owned by the caller. Admins may name another owner.
// POST /v1/certificates
func (h *CertHandler) Create(c *gin.Context) {
	var req CreateCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalidBody(c, err)
		return
	}

	claims := CurrentClaims(c)
	ownerID := account.UserIDString(claims.UserID)
	if req.OwnerID != "" && claims.Role == models.RoleAdmin {
		ownerID = req.OwnerID
	}

	cert, err := h.engine.Create(models.CertificateInput{
		OwnerID:        ownerID,
		Name:           req.Name,
		Description:    req.Description,
		Type:           req.Type,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		IssueDate:      req.IssueDate,
		ExpiresAt:      req.ExpiresAt,
		Metadata:       req.Metadata,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cert)
}

// List lists certificates; non-admins only see their own
// GET /v1/certificates
func (h *CertHandler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	claims := CurrentClaims(c)
	if claims.Role != models.RoleAdmin {
		filter.OwnerID = account.UserIDString(claims.UserID)
	}

	res, err := h.engine.List(filter)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	RespondSuccess(c, ListResponse{Items: res.Items, Total: res.Total, Offset: filter.Offset, Limit: filter.Limit})
}

// Stats returns certificate counts; non-admins get their own
// GET /v1/certificates/stats
func (h *CertHandler) Stats(c *gin.Context) {
	claims := CurrentClaims(c)
	ownerID := c.Query("ownerId")
	if claims.Role != models.RoleAdmin {
		ownerID = account.UserIDString(claims.UserID)
	}

	stats, err := h.engine.Statistics(ownerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	RespondSuccess(c, stats)
}

// Get returns one certificate
// GET /v1/certificates/:id
func (h *CertHandler) Get(c *gin.Context) {
	cert, ok := h.authorize(c)
	if !ok {
		return
	}
	RespondSuccess(c, cert)
}

// Update merges the given fields
// PATCH /v1/certificates/:id
func (h *CertHandler) Update(c *gin.Context) {
	var req models.CertificateUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalidBody(c, err)
		return
	}

	if _, ok := h.authorize(c); !ok {
		return
	}

	cert, err := h.engine.Update(c.Param("id"), req)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	RespondSuccess(c, cert)
}

// Issue issues a certificate
// POST /v1/certificates/:id/issue
func (h *CertHandler) Issue(c *gin.Context) {
	if _, ok := h.authorize(c); !ok {
		return
	}

	cert, err := h.engine.Issue(c.Param("id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}

	RespondSuccess(c, cert)
}

// Revoke revokes a certificate
// POST /v1/certificates/:id/revoke
func (h *CertHandler) Revoke(c *gin.Context) {
	var req RevokeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondInvalidBody(c, err)
			return
		}
	}

	if _, ok := h.authorize(c); !ok {
		return
	}

	cert, err := h.engine.Revoke(c.Param("id"), req.Reason)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	RespondSuccess(c, cert)
}

// Delete deletes a certificate
// DELETE /v1/certificates/:id
func (h *CertHandler) Delete(c *gin.Context) {
	if _, ok := h.authorize(c); !ok {
		return
	}

	if err := h.engine.Delete(c.Param("id")); err != nil {
		RespondAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// authorize loads the :id certificate and hides certificates the caller does not own
func (h *CertHandler) authorize(c *gin.Context) (*models.Certificate, bool) {
	cert, err := h.engine.Get(c.Param("id"))
	if err != nil {
		RespondAppError(c, err)
		return nil, false
	}

	if !canAccess(CurrentClaims(c), cert) {
		RespondAppError(c, apperror.NotFound("Certificate not found"))
		return nil, false
	}
	return cert, true
}

func canAccess(claims *token.Claims, cert *models.Certificate) bool {
	return claims.Role == models.RoleAdmin || cert.OwnerID == account.UserIDString(claims.UserID)
}

func parseFilter(c *gin.Context) (certificate.Filter, error) {
	filter := certificate.Filter{
		Status:  models.CertificateStatus(c.Query("status")),
		OwnerID: c.Query("ownerId"),
		Search:  c.Query("search"),
		Limit:   defaultPageSize,
	}

	var details []string

	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			details = append(details, "offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPageSize {
			details = append(details, "limit must be between 1 and 100")
		}
		filter.Limit = n
	}

	var err error
	if filter.DateFrom, err = parseDate(c.Query("dateFrom"), false); err != nil {
		details = append(details, "dateFrom must be RFC 3339 or YYYY-MM-DD")
	}
	if filter.DateTo, err = parseDate(c.Query("dateTo"), true); err != nil {
		details = append(details, "dateTo must be RFC 3339 or YYYY-MM-DD")
	}

	if len(details) > 0 {
		return filter, apperror.Validation("Invalid query parameters", details)
	}
	return filter, nil
}

// parseDate accepts RFC 3339 or a bare date; a bare dateTo covers the whole day
func parseDate(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
