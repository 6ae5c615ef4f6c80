package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/token"
	"github.com/gin-gonic/gin"
)

// Context keys set by the authentication middleware
const (
	ClaimsKey      = "claims"
	AccessTokenKey = "accessToken"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RateLimitResponse is the body of a 429 response
type RateLimitResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// RespondError sends an error response
func RespondError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// RespondErrorWithDetails sends an error response with details
func RespondErrorWithDetails(c *gin.Context, statusCode int, errorCode string, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// RespondRateLimited sends a 429 with a Retry-After header
func RespondRateLimited(c *gin.Context, retryAfter int) {
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.JSON(http.StatusTooManyRequests, RateLimitResponse{
		Error:      apperror.CodeRateLimitExceeded,
		Code:       apperror.CodeRateLimitExceeded,
		Message:    "Too many requests, please try again later",
		RetryAfter: retryAfter,
	})
}

// RespondAppError maps an application error to its HTTP status. Unclassified
// errors become a 500 without leaking their text.
func RespondAppError(c *gin.Context, err error) {
	var rl *apperror.RateLimitError
	if errors.As(err, &rl) {
		RespondRateLimited(c, rl.RetryAfter)
		return
	}

	var ae *apperror.Error
	if !errors.As(err, &ae) {
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, apperror.CodeInternal, "Internal server error")
		return
	}

	status := statusFor(ae.Kind)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		RespondError(c, status, ae.Code, "Internal server error")
		return
	}

	RespondErrorWithDetails(c, status, ae.Code, ae.Message, ae.Details)
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindAuthentication:
		return http.StatusUnauthorized
	case apperror.KindAuthorization:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// RespondInvalidBody sends a 400 for a request body that failed to bind
func RespondInvalidBody(c *gin.Context, err error) {
	RespondErrorWithDetails(c, http.StatusBadRequest, apperror.CodeValidation, "Invalid request body", err.Error())
}

// RespondSuccess sends a success response
func RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// GetClientIP returns the client address as resolved by gin's trusted proxy settings
func GetClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// CurrentClaims returns the verified access token claims of the request
func CurrentClaims(c *gin.Context) *token.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*token.Claims)
	return claims
}

// CurrentAccessToken returns the raw access token of the request
func CurrentAccessToken(c *gin.Context) string {
	return c.GetString(AccessTokenKey)
}
