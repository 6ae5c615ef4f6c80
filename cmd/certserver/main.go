package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/adamscao/pic-certificates/internal/account"
	"github.com/adamscao/pic-certificates/internal/api"
	"github.com/adamscao/pic-certificates/internal/audit"
	"github.com/adamscao/pic-certificates/internal/certificate"
	"github.com/adamscao/pic-certificates/internal/config"
	"github.com/adamscao/pic-certificates/internal/db"
	"github.com/adamscao/pic-certificates/internal/db/repository"
	"github.com/adamscao/pic-certificates/internal/logging"
	"github.com/adamscao/pic-certificates/internal/metrics"
	"github.com/adamscao/pic-certificates/internal/notify"
	"github.com/adamscao/pic-certificates/internal/policy"
	"github.com/adamscao/pic-certificates/internal/ratelimit"
	"github.com/adamscao/pic-certificates/internal/token"
	"github.com/adamscao/pic-certificates/internal/verification"
	"go.uber.org/zap"
)

var (
	// Version information (set via ldflags)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "/etc/pic-certificates/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("PIC Certificates Server\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "certserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load configuration
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting PIC Certificates Server",
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("config", configPath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	logger.Info("Opening database", zap.String("path", cfg.Database.Path))
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB, logger)

	m := metrics.New()
	sink := audit.Multi{audit.NewZapSink(logger), auditRepo, m}

	tokens := token.NewService(token.Config{
		AccessSecret:  cfg.Tokens.AccessSecret,
		RefreshSecret: cfg.Tokens.RefreshSecret,
		ResetSecret:   cfg.Tokens.ResetSecret,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
		ResetTTL:      cfg.ResetTTL(),
	}, sink)

	registry, closeRegistry, err := newRegistry(ctx, cfg, logger, sink)
	if err != nil {
		return err
	}
	defer closeRegistry()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimitWindow(), cfg.RateLimit.MaxRequests)
	}

	var store certificate.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		store = repository.NewCertRepository(database.DB)
	default:
		store = certificate.NewMemoryStore()
	}
	logger.Info("Certificate store ready", zap.String("backend", cfg.Storage.Backend))

	notifier := notify.NewLogNotifier(cfg.Email, logger)
	engine := certificate.NewEngine(store, logger,
		certificate.WithValidator(policy.NewValidator(cfg.Policy)),
		certificate.WithNotifier(notifier),
		certificate.WithSink(sink),
	)
	verifier := verification.NewService(engine, logger, verification.WithRecorder(m))
	accounts := account.NewService(userRepo, tokens, registry, notifier, sink, cfg.EncryptionKey(), logger)

	// Create HTTP server
	server := api.NewServer(api.Deps{
		Accounts:     accounts,
		Tokens:       tokens,
		Registry:     registry,
		Engine:       engine,
		Verifier:     verifier,
		Audit:        auditRepo,
		Metrics:      m,
		Limiter:      limiter,
		Logger:       logger,
		Debug:        cfg.Logging.Level == "debug",
		TrustProxies: cfg.Server.TrustedProxies,
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: server.Handler(),
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Server.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	engine.Wait()
	accounts.Wait()

	logger.Info("Server stopped")
	return nil
}

func newRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger, sink audit.Sink) (token.Registry, func(), error) {
	if cfg.Revocation.Backend == "redis" {
		registry, err := token.NewRedisRegistry(ctx, token.RedisOptions{
			Addr:        cfg.Revocation.Redis.Addr,
			Password:    cfg.Revocation.Redis.Password,
			DB:          cfg.Revocation.Redis.DB,
			KeyPrefix:   cfg.Revocation.Redis.KeyPrefix,
			FallbackTTL: cfg.RefreshTTL(),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Revocation registry ready", zap.String("backend", "redis"))
		return registry, func() { registry.Close() }, nil
	}

	registry := token.NewMemoryRegistry(cfg.Revocation.MaxEntries, logger, sink)
	go registry.Run(ctx, cfg.SweepInterval())
	logger.Info("Revocation registry ready",
		zap.String("backend", "memory"),
		zap.Int("max_entries", cfg.Revocation.MaxEntries))
	return registry, func() {}, nil
}
