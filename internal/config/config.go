// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

// Package config loads and validates the Domus configuration from layered
// sources: struct defaults, an optional YAML file, and environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Domus server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	NATS      NATSConfig      `koanf:"nats"`
	Chat      ChatConfig      `koanf:"chat"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment" validate:"oneof=development production"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path         string        `koanf:"path" validate:"required"`
	BusyTimeout  time.Duration `koanf:"busy_timeout"`
	MaxOpenConns int           `koanf:"max_open_conns"`
}

// SecurityConfig holds authentication and rate-limiting settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens (HS256). Required in production,
	// minimum 32 characters when set.
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	BcryptCost     int           `koanf:"bcrypt_cost" validate:"min=4,max=31"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	AuthRateLimitReqs int           `koanf:"auth_rate_limit_reqs" validate:"min=1"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// NATSConfig holds the cross-instance chat relay transport settings.
// When disabled, the hub relays only within the local process.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	Topic          string `koanf:"topic"`
}

// ChatConfig holds real-time hub tunables.
type ChatConfig struct {
	// SendBuffer is the per-client outbound frame buffer. A full buffer
	// drops frames rather than blocking the hub (at-most-once delivery).
	SendBuffer int `koanf:"send_buffer" validate:"min=1"`

	// EventRate and EventBurst bound inbound events per connection.
	EventRate  float64 `koanf:"event_rate" validate:"gt=0"`
	EventBurst int     `koanf:"event_burst" validate:"min=1"`

	MaxMessageSize int64 `koanf:"max_message_size" validate:"min=1"`
}

// RecommendConfig holds recommendation engine tunables.
type RecommendConfig struct {
	// DefaultLimit is used when a request does not specify one.
	DefaultLimit int           `koanf:"default_limit" validate:"min=1"`
	MaxLimit     int           `koanf:"max_limit" validate:"min=1"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	CacheSize    int           `koanf:"cache_size" validate:"min=1"`

	// MaxCandidates caps the candidate pool queried per request.
	MaxCandidates int `koanf:"max_candidates" validate:"min=1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for structural and semantic errors.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Rules the struct tags cannot express.
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	if c.Server.Environment == "production" && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required in production")
	}
	if c.NATS.Enabled && !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats is enabled without the embedded server")
	}
	if c.Recommend.DefaultLimit > c.Recommend.MaxLimit {
		return fmt.Errorf("recommend.default_limit (%d) exceeds recommend.max_limit (%d)",
			c.Recommend.DefaultLimit, c.Recommend.MaxLimit)
	}
	return nil
}
