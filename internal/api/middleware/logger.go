package middleware

import (
	"strconv"
	"time"

	"github.com/adamscao/pic-certificates/internal/api/handlers"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// RequestObserver records request durations
type RequestObserver interface {
	ObserveRequest(method, route, status string, d time.Duration)
}

// RequestID assigns a request id unless the client supplied one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Logger logs every request and feeds the duration histogram
func Logger(logger *zap.Logger, observer RequestObserver) gin.HandlerFunc {
	logger = logger.With(zap.String("component", "http"))

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("client_ip", handlers.GetClientIP(c)),
			zap.String("request_id", c.GetString(RequestIDHeader)),
		}
		if claims := handlers.CurrentClaims(c); claims != nil {
			fields = append(fields, zap.Int64("user_id", claims.UserID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}

		if observer != nil {
			observer.ObserveRequest(c.Request.Method, route, strconv.Itoa(status), elapsed)
		}
	}
}
