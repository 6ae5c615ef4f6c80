package api

import (
	"net/http"

	"github.com/adamscao/pic-certificates/internal/account"
	"github.com/adamscao/pic-certificates/internal/api/handlers"
	"github.com/adamscao/pic-certificates/internal/api/middleware"
	"github.com/adamscao/pic-certificates/internal/certificate"
	"github.com/adamscao/pic-certificates/internal/metrics"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/adamscao/pic-certificates/internal/ratelimit"
	"github.com/adamscao/pic-certificates/internal/token"
	"github.com/adamscao/pic-certificates/internal/verification"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the services the HTTP adapter routes to
type Deps struct {
	Accounts     *account.Service
	Tokens       *token.Service
	Registry     token.Registry
	Engine       *certificate.Engine
	Verifier     *verification.Service
	Audit        handlers.AuditLister
	Metrics      *metrics.Metrics
	Limiter      *ratelimit.Limiter // nil disables rate limiting
	Logger       *zap.Logger
	Debug        bool
	TrustProxies []string
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	// Set Gin mode
	if deps.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var observer middleware.RequestObserver
	var recorder middleware.RateLimitRecorder
	if deps.Metrics != nil {
		observer = deps.Metrics
		recorder = deps.Metrics
	}

	router := gin.New()
	if err := router.SetTrustedProxies(deps.TrustProxies); err != nil {
		logger.Warn("Invalid trusted proxy list, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger, observer))

	// Create handlers
	authHandler := handlers.NewAuthHandler(deps.Accounts)
	certHandler := handlers.NewCertHandler(deps.Engine)
	verifyHandler := handlers.NewVerifyHandler(deps.Verifier)
	adminHandler := handlers.NewAdminHandler(deps.Accounts, deps.Audit, logger)

	authenticated := middleware.Authenticate(deps.Tokens, deps.Registry)
	limited := func(route string) gin.HandlerFunc {
		if deps.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(deps.Limiter, recorder, route)
	}

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Public verification
		v1.GET("/verify/:certificateId", verifyHandler.Verify)

		auth := v1.Group("/auth")
		{
			auth.POST("/login", limited("login"), authHandler.Login)
			auth.POST("/forgot-password", limited("forgot_password"), authHandler.ForgotPassword)
			auth.POST("/reset-password", limited("reset_password"), authHandler.ResetPassword)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authenticated, authHandler.Logout)
			auth.GET("/me", authenticated, authHandler.Me)
		}

		certs := v1.Group("/certificates")
		certs.Use(authenticated)
		{
			certs.POST("", certHandler.Create)
			certs.GET("", certHandler.List)
			certs.GET("/stats", certHandler.Stats)
			certs.GET("/:id", certHandler.Get)
			certs.PATCH("/:id", certHandler.Update)
			certs.POST("/:id/issue", certHandler.Issue)
			certs.POST("/:id/revoke", certHandler.Revoke)
			certs.DELETE("/:id", certHandler.Delete)
		}

		// Admin endpoints
		admin := v1.Group("/admin")
		admin.Use(authenticated, middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/users", adminHandler.CreateUser)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/audit", adminHandler.ListAudit)
		}
	}

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return &Server{router: router}
}

// Handler returns the server as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
