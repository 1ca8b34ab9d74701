// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIBaseURL    string `env:"EPRESS_API_BASE_URL,required"` // Backend REST API base URL
	SessionSecret string `env:"EPRESS_SESSION_SECRET,required"`
	DBPath        string `env:"EPRESS_DB_PATH" envDefault:"./data/epress.db"`
	ServerHost    string `env:"EPRESS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"EPRESS_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"EPRESS_ENV" envDefault:"development"`
	LogLevel      string `env:"EPRESS_LOG_LEVEL" envDefault:"info"`

	// Backend client configuration
	APITimeout int `env:"EPRESS_API_TIMEOUT" envDefault:"30"` // Request timeout in seconds

	// Cache configuration
	RedisURL     string `env:"EPRESS_REDIS_URL"`                        // Optional Redis URL for distributed caching
	CachePrefix  string `env:"EPRESS_CACHE_PREFIX" envDefault:"epress:"` // Redis key prefix
	CacheTTL     int    `env:"EPRESS_CACHE_TTL" envDefault:"300"`       // Edition cache TTL in seconds
	CacheMaxSize int    `env:"EPRESS_CACHE_MAX_SIZE" envDefault:"1000"` // Max memory cache entries

	// Image normalization configuration
	MaxImageEdge int `env:"EPRESS_MAX_IMAGE_EDGE" envDefault:"2400"` // Cap for the long edge of page scans, px
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// APIRequestTimeout returns the backend request timeout as a duration.
func (c Config) APIRequestTimeout() time.Duration {
	return time.Duration(c.APITimeout) * time.Second
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate the backend base URL early so a typo fails at startup,
	// not on the first request.
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("EPRESS_API_BASE_URL must be an absolute URL, got %q", cfg.APIBaseURL)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("EPRESS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("EPRESS_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("EPRESS_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
