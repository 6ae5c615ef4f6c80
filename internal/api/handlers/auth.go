package handlers

import (
	"net/http"

	"github.com/adamscao/pic-certificates/internal/account"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles login, token rotation and password recovery
type AuthHandler struct {
	accounts *account.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts *account.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTP     string `json:"totp"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the session
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ForgotPasswordRequest starts password recovery
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest completes password recovery
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent"

// Login authenticates with username, password and optional TOTP
// POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalidBody(c, err)
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password, req.TOTP, GetClientIP(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}

	RespondSuccess(c, res)
}

// Refresh rotates a refresh token
// POST /v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalidBody(c, err)
		return
	}

	pair, err := h.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	RespondSuccess(c, pair)
}

// Logout revokes the current access token and the given refresh token
// POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondInvalidBody(c, err)
			return
		}
	}

	if err := h.accounts.Logout(c.Request.Context(), CurrentClaims(c), CurrentAccessToken(c), req.RefreshToken); err != nil {
		RespondAppError(c, err)
		return
	}

	RespondSuccess(c, MessageResponse{Message: "Logged out"})
}

// ForgotPassword answers identically for known and unknown addresses
// POST /v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalidBody(c, err)
		return
	}

	h.accounts.ForgotPassword(c.Request.Context(), req.Email)
	RespondSuccess(c, MessageResponse{Message: forgotPasswordMessage})
}

// ResetPassword sets a new password with a reset token
// POST /v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalidBody(c, err)
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		RespondAppError(c, err)
		return
	}

	RespondSuccess(c, MessageResponse{Message: "Password has been reset"})
}

// Me returns the authenticated user
// GET /v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.accounts.Me(CurrentClaims(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
