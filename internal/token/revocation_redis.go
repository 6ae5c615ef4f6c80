package token

import (
	"context"
	"fmt"
	"time"

	"github.com/adamscao/pic-certificates/internal/auth"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRegistry shares revocations between server instances. Keys expire with
// the token so redis does the eviction.
type RedisRegistry struct {
	client      *redis.Client
	keyPrefix   string
	fallbackTTL time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// RedisOptions configures a RedisRegistry
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// FallbackTTL bounds entries added without an expiry.
	FallbackTTL time.Duration
}

// NewRedisRegistry connects to redis and verifies the connection
func NewRedisRegistry(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if opts.FallbackTTL <= 0 {
		opts.FallbackTTL = DefaultRefreshTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisRegistry{
		client:      client,
		keyPrefix:   opts.KeyPrefix,
		fallbackTTL: opts.FallbackTTL,
		logger:      logger.With(zap.String("component", "revocation_registry")),
		now:         time.Now,
	}, nil
}

// Add revokes token until expiresAt
func (r *RedisRegistry) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := r.ttl(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, r.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}
	return nil
}

// Revoke stores token with SETNX so only the first caller wins
func (r *RedisRegistry) Revoke(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	ttl := r.ttl(expiresAt)
	if ttl <= 0 {
		return false, nil
	}

	set, err := r.client.SetNX(ctx, r.key(token), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store revocation: %w", err)
	}
	return !set, nil
}

// IsBlacklisted reports whether token is revoked. Redis errors fail closed.
func (r *RedisRegistry) IsBlacklisted(ctx context.Context, token string) bool {
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		r.logger.Error("Redis error checking revocation", zap.Error(err))
		return true
	}
	return n > 0
}

// Close closes the redis connection
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

func (r *RedisRegistry) ttl(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return r.fallbackTTL
	}
	return expiresAt.Sub(r.now())
}

func (r *RedisRegistry) key(token string) string {
	return r.keyPrefix + auth.Fingerprint(token)
}
