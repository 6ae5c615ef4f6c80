package middleware

import (
	"net/http"
	"strings"

	"github.com/adamscao/pic-certificates/internal/api/handlers"
	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/adamscao/pic-certificates/internal/token"
	"github.com/gin-gonic/gin"
)

// Authenticate requires a valid, unrevoked Bearer access token
func Authenticate(tokens *token.Service, registry token.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			handlers.RespondError(c, http.StatusUnauthorized, apperror.CodeTokenInvalid, "Bearer token required")
			c.Abort()
			return
		}

		if registry.IsBlacklisted(c.Request.Context(), raw) {
			handlers.RespondError(c, http.StatusUnauthorized, apperror.CodeTokenRevoked, "Token has been revoked")
			c.Abort()
			return
		}

		claims, err := tokens.VerifyAccess(raw)
		if err != nil {
			handlers.RespondAppError(c, err)
			c.Abort()
			return
		}

		c.Set(handlers.ClaimsKey, claims)
		c.Set(handlers.AccessTokenKey, raw)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := handlers.CurrentClaims(c)
		if claims != nil {
			for _, r := range roles {
				if claims.Role == r {
					c.Next()
					return
				}
			}
		}

		handlers.RespondError(c, http.StatusForbidden, apperror.CodeForbidden, "Insufficient permissions")
		c.Abort()
	}
}

func bearerToken(header string) string {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}
