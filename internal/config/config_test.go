// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8420 {
		t.Errorf("server port = %d, want 8420", cfg.Server.Port)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("environment = %q, want development", cfg.Server.Environment)
	}
	if cfg.Recommend.DefaultLimit != 6 {
		t.Errorf("recommend default limit = %d, want 6", cfg.Recommend.DefaultLimit)
	}
	if cfg.Chat.SendBuffer != 256 {
		t.Errorf("chat send buffer = %d, want 256", cfg.Chat.SendBuffer)
	}
	if cfg.NATS.Topic != "chat.events" {
		t.Errorf("nats topic = %q", cfg.NATS.Topic)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DOMUS_SERVER_PORT", "9100")
	t.Setenv("DOMUS_LOGGING_LEVEL", "debug")
	t.Setenv("DOMUS_RECOMMEND_DEFAULT_LIMIT", "10")
	t.Setenv("DOMUS_SECURITY_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("server port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Recommend.DefaultLimit != 10 {
		t.Errorf("recommend default limit = %d, want 10", cfg.Recommend.DefaultLimit)
	}
	if cfg.Security.JWTSecret == "" {
		t.Error("jwt secret not loaded from environment")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domus.yaml")
	yaml := `
server:
  port: 9200
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("server port = %d, want 9200 from file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging level = %q, want warn from file", cfg.Logging.Level)
	}

	// Environment still wins over the file.
	t.Setenv("DOMUS_SERVER_PORT", "9300")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9300 {
		t.Errorf("server port = %d, want env override 9300", cfg.Server.Port)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DOMUS_SERVER_PORT", "server.port"},
		{"DOMUS_SECURITY_JWT_SECRET", "security.jwt_secret"},
		{"DOMUS_RECOMMEND_DEFAULT_LIMIT", "recommend.default_limit"},
		{"DOMUS_NATS_URL", "nats.url"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"short jwt secret", func(c *Config) {
			c.Security.JWTSecret = "too-short"
		}, true},
		{"production requires secret", func(c *Config) {
			c.Server.Environment = "production"
		}, true},
		{"production with secret", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, false},
		{"invalid port", func(c *Config) {
			c.Server.Port = 0
		}, true},
		{"invalid log level", func(c *Config) {
			c.Logging.Level = "verbose"
		}, true},
		{"default limit above max", func(c *Config) {
			c.Recommend.DefaultLimit = 100
			c.Recommend.MaxLimit = 10
		}, true},
		{"external nats needs url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.EmbeddedServer = false
			c.NATS.URL = ""
		}, true},
		{"bcrypt cost out of range", func(c *Config) {
			c.Security.BcryptCost = 99
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionTimeoutDefault(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Security.SessionTimeout != 24*time.Hour {
		t.Errorf("session timeout = %v, want 24h", cfg.Security.SessionTimeout)
	}
}
