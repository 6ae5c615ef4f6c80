package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML without validating
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a file and applies environment variable overrides
func LoadWithEnv(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}

	return cfg, nil
}

// ApplyEnv applies PIC_CERT_* environment variable overrides
func ApplyEnv(cfg *Config) {
	overrides := map[string]*string{
		"PIC_CERT_LISTEN_ADDR":    &cfg.Server.ListenAddr,
		"PIC_CERT_DB_PATH":        &cfg.Database.Path,
		"PIC_CERT_STORAGE":        &cfg.Storage.Backend,
		"PIC_CERT_ACCESS_SECRET":  &cfg.Tokens.AccessSecret,
		"PIC_CERT_REFRESH_SECRET": &cfg.Tokens.RefreshSecret,
		"PIC_CERT_RESET_SECRET":   &cfg.Tokens.ResetSecret,
		"PIC_CERT_ENCRYPTION_KEY": &cfg.Encryption.Key,
		"PIC_CERT_REDIS_ADDR":     &cfg.Revocation.Redis.Addr,
		"PIC_CERT_LOG_LEVEL":      &cfg.Logging.Level,
	}

	for name, target := range overrides {
		if value := os.Getenv(name); value != "" {
			*target = value
		}
	}
}
