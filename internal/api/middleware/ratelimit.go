package middleware

import (
	"github.com/adamscao/pic-certificates/internal/api/handlers"
	"github.com/adamscao/pic-certificates/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimitRecorder counts rejected requests
type RateLimitRecorder interface {
	RateLimited(route string)
}

// RateLimit rejects clients that exceed the limiter's window, keyed by client IP
func RateLimit(limiter *ratelimit.Limiter, recorder RateLimitRecorder, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.Allow(handlers.GetClientIP(c))
		if !d.Allowed {
			if recorder != nil {
				recorder.RateLimited(route)
			}
			handlers.RespondRateLimited(c, d.RetryAfter)
			c.Abort()
			return
		}

		c.Next()
	}
}
