package config

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Tokens     TokensConfig     `yaml:"tokens"`
	Revocation RevocationConfig `yaml:"revocation"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Logging    LoggingConfig    `yaml:"logging"`
	Email      EmailConfig      `yaml:"email"`
	Policy     PolicyConfig     `yaml:"policy"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	ListenAddr      string   `yaml:"listen_addr"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	TrustedProxies  []string `yaml:"trusted_proxies"` // empty trusts none; ClientIP is the peer address
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig selects the certificate store backend
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory or sqlite
}

// TokensConfig contains JWT secrets and lifetimes per token class
type TokensConfig struct {
	AccessSecret  string `yaml:"access_secret"`
	RefreshSecret string `yaml:"refresh_secret"`
	ResetSecret   string `yaml:"reset_secret"`
	AccessTTL     string `yaml:"access_ttl"`
	RefreshTTL    string `yaml:"refresh_ttl"`
	ResetTTL      string `yaml:"reset_ttl"`
}

// RevocationConfig contains token revocation registry configuration
type RevocationConfig struct {
	Backend       string      `yaml:"backend"` // memory or redis
	MaxEntries    int         `yaml:"max_entries"`
	SweepInterval string      `yaml:"sweep_interval"`
	Redis         RedisConfig `yaml:"redis"`
}

// RedisConfig contains redis connection settings
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RateLimitConfig contains rate limiting configuration for auth endpoints
type RateLimitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Window      string `yaml:"window"`
	MaxRequests int    `yaml:"max_requests"`
}

// EncryptionConfig contains encryption configuration
type EncryptionConfig struct {
	Key string `yaml:"key"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EmailConfig contains notification settings
type EmailConfig struct {
	From    string `yaml:"from"`
	BaseURL string `yaml:"base_url"`
}

// PolicyConfig contains certificate input policy
type PolicyConfig struct {
	MaxNameLength   int `yaml:"max_name_length"`
	MaxMetadataKeys int `yaml:"max_metadata_keys"`
}

const minSecretLength = 32

// Default returns a configuration with every optional field populated
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: "10s",
		},
		Database: DatabaseConfig{Path: "/var/lib/pic-certificates/pic.db"},
		Storage:  StorageConfig{Backend: "memory"},
		Tokens: TokensConfig{
			AccessTTL:  "15m",
			RefreshTTL: "7d",
			ResetTTL:   "1h",
		},
		Revocation: RevocationConfig{
			Backend:       "memory",
			MaxEntries:    10000,
			SweepInterval: "1m",
			Redis:         RedisConfig{Addr: "localhost:6379", KeyPrefix: "pic:revoked:"},
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			Window:      "15m",
			MaxRequests: 5,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Email:   EmailConfig{From: "no-reply@pic-certificates.local"},
		Policy:  PolicyConfig{MaxNameLength: 200, MaxMetadataKeys: 50},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if _, err := parseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout is invalid: %w", err)
	}

	// Database validation
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Storage.Backend != "memory" && c.Storage.Backend != "sqlite" {
		return fmt.Errorf("storage.backend must be 'memory' or 'sqlite'")
	}

	// Token validation
	secrets := map[string]string{
		"tokens.access_secret":  c.Tokens.AccessSecret,
		"tokens.refresh_secret": c.Tokens.RefreshSecret,
		"tokens.reset_secret":   c.Tokens.ResetSecret,
	}
	for name, secret := range secrets {
		if len(secret) < minSecretLength {
			return fmt.Errorf("%s must be at least %d characters", name, minSecretLength)
		}
	}
	if c.Tokens.AccessSecret == c.Tokens.RefreshSecret ||
		c.Tokens.AccessSecret == c.Tokens.ResetSecret ||
		c.Tokens.RefreshSecret == c.Tokens.ResetSecret {
		return fmt.Errorf("tokens secrets must be distinct per token class")
	}
	for name, value := range map[string]string{
		"tokens.access_ttl":  c.Tokens.AccessTTL,
		"tokens.refresh_ttl": c.Tokens.RefreshTTL,
		"tokens.reset_ttl":   c.Tokens.ResetTTL,
	} {
		d, err := parseDuration(value)
		if err != nil {
			return fmt.Errorf("%s is invalid: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	// Revocation validation
	if c.Revocation.Backend != "memory" && c.Revocation.Backend != "redis" {
		return fmt.Errorf("revocation.backend must be 'memory' or 'redis'")
	}
	if c.Revocation.MaxEntries <= 0 {
		return fmt.Errorf("revocation.max_entries must be positive")
	}
	if _, err := parseDuration(c.Revocation.SweepInterval); err != nil {
		return fmt.Errorf("revocation.sweep_interval is invalid: %w", err)
	}
	if c.Revocation.Backend == "redis" && c.Revocation.Redis.Addr == "" {
		return fmt.Errorf("revocation.redis.addr is required for the redis backend")
	}

	// Rate limit validation
	if c.RateLimit.Enabled {
		d, err := parseDuration(c.RateLimit.Window)
		if err != nil {
			return fmt.Errorf("rate_limit.window is invalid: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("rate_limit.window must be positive")
		}
		if c.RateLimit.MaxRequests <= 0 {
			return fmt.Errorf("rate_limit.max_requests must be positive")
		}
	}

	// Encryption validation
	if len(c.Encryption.Key) != 64 { // 32 bytes = 64 hex chars
		return fmt.Errorf("encryption.key must be 64 hex characters (32 bytes)")
	}
	if _, err := hex.DecodeString(c.Encryption.Key); err != nil {
		return fmt.Errorf("encryption.key is not valid hex: %w", err)
	}

	// Logging validation
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be 'json' or 'text'")
	}

	if c.Policy.MaxNameLength <= 0 {
		return fmt.Errorf("policy.max_name_length must be positive")
	}
	if c.Policy.MaxMetadataKeys < 0 {
		return fmt.Errorf("policy.max_metadata_keys must not be negative")
	}

	return nil
}

// AccessTTL returns the access token lifetime
func (c *Config) AccessTTL() time.Duration {
	d, _ := parseDuration(c.Tokens.AccessTTL)
	return d
}

// RefreshTTL returns the refresh token lifetime
func (c *Config) RefreshTTL() time.Duration {
	d, _ := parseDuration(c.Tokens.RefreshTTL)
	return d
}

// ResetTTL returns the reset token lifetime
func (c *Config) ResetTTL() time.Duration {
	d, _ := parseDuration(c.Tokens.ResetTTL)
	return d
}

// SweepInterval returns how often the revocation registry drops expired entries
func (c *Config) SweepInterval() time.Duration {
	d, _ := parseDuration(c.Revocation.SweepInterval)
	return d
}

// RateLimitWindow returns the fixed window length
func (c *Config) RateLimitWindow() time.Duration {
	d, _ := parseDuration(c.RateLimit.Window)
	return d
}

// ShutdownTimeout returns the graceful shutdown budget
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := parseDuration(c.Server.ShutdownTimeout)
	return d
}

// EncryptionKey returns the decoded 32-byte encryption key
func (c *Config) EncryptionKey() []byte {
	key, _ := hex.DecodeString(c.Encryption.Key)
	return key
}

// parseDuration parses duration with support for days (e.g., "7d")
func parseDuration(s string) (time.Duration, error) {
	// Handle "d" suffix for days
	if len(s) > 1 && s[len(s)-1] == 'd' {
		days := s[:len(s)-1]
		var d int
		if _, err := fmt.Sscanf(days, "%d", &d); err != nil {
			return 0, err
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
