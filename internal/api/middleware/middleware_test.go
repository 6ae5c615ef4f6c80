package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adamscao/pic-certificates/internal/api/handlers"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/adamscao/pic-certificates/internal/ratelimit"
	"github.com/adamscao/pic-certificates/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingRecorder struct{ routes []string }

func (r *countingRecorder) RateLimited(route string) { r.routes = append(r.routes, route) }

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc"))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken(""))
}

func TestRequireRole(t *testing.T) {
	withRole := func(role models.Role) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(handlers.ClaimsKey, &token.Claims{UserID: 1, Role: role})
			c.Next()
		}
	}

	tests := []struct {
		role models.Role
		want int
	}{
		{models.RoleAdmin, http.StatusOK},
		{models.RoleManager, http.StatusOK},
		{models.RoleUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		r := gin.New()
		r.GET("/", withRole(tt.role), RequireRole(models.RoleAdmin, models.RoleManager), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tt.want, w.Code, tt.role)
	}
}

func TestRequireRoleWithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit(t *testing.T) {
	rec := &countingRecorder{}
	r := gin.New()
	r.POST("/login", RateLimit(ratelimit.New(time.Minute, 1), rec, "login"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000").Code)
	blocked := send("10.0.0.1:1001")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000").Code)
	assert.Equal(t, []string{"login"}, rec.routes)
}

func TestRequestIDKeepsClientValue(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop(), nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}
