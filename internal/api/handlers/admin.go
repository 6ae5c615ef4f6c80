package handlers

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/adamscao/pic-certificates/internal/account"
	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const totpQRSize = 256

// AuditLister lists persisted security events
type AuditLister interface {
	List(event string, limit int) ([]*models.AuditLog, error)
}

// AdminHandler handles administrative operations
type AdminHandler struct {
	accounts *account.Service
	audit    AuditLister
	logger   *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(accounts *account.Service, audit AuditLister, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		audit:    audit,
		logger:   logger.With(zap.String("component", "admin")),
	}
}

// CreateUserRequest represents a user creation request
type CreateUserRequest struct {
	Username   string      `json:"username" binding:"required"`
	Email      string      `json:"email" binding:"required"`
	Password   string      `json:"password" binding:"required"`
	Role       models.Role `json:"role"`
	FactoryID  string      `json:"factoryId"`
	EnableTOTP bool        `json:"enableTotp"`
}

// CreateUserResponse represents a user creation response
type CreateUserResponse struct {
	User       *models.User `json:"user"`
	TOTPSecret string       `json:"totpSecret,omitempty"`
	TOTPURL    string       `json:"totpUrl,omitempty"`
	TOTPQRCode string       `json:"totpQrCode,omitempty"` // base64 PNG
}

// CreateUser creates a new user
// POST /v1/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalidBody(c, err)
		return
	}

	created, err := h.accounts.CreateUser(c.Request.Context(), account.CreateUserInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		FactoryID:  req.FactoryID,
		EnableTOTP: req.EnableTOTP,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}

	resp := CreateUserResponse{User: created.User}
	if created.TOTP != nil {
		resp.TOTPSecret = created.TOTP.Secret
		resp.TOTPURL = created.TOTP.URL
		png, err := created.TOTP.QRCodePNG(totpQRSize)
		if err != nil {
			h.logger.Warn("Failed to render TOTP QR code", zap.Error(err))
		} else {
			resp.TOTPQRCode = base64.StdEncoding.EncodeToString(png)
		}
	}

	c.JSON(http.StatusCreated, resp)
}

// ListUsers lists all users
// GET /v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	RespondSuccess(c, gin.H{"items": users, "total": len(users)})
}

// ListAudit lists recent security events
// GET /v1/admin/audit?event=&limit=
func (h *AdminHandler) ListAudit(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			RespondAppError(c, apperror.Validation("limit must be a positive integer", nil))
			return
		}
		limit = n
	}

	logs, err := h.audit.List(c.Query("event"), limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	RespondSuccess(c, gin.H{"items": logs})
}
