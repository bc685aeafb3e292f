// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML config file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Cache    CacheConfig    `koanf:"cache"`
	Rooms    RoomsConfig    `koanf:"rooms"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8330)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
//   - ENVIRONMENT: development or production (default: development)
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds embedded DuckDB settings.
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/nobarfilm.duckdb)
//   - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 1GB)
//   - DUCKDB_THREADS: Worker threads, 0 = runtime.NumCPU() (default: 0)
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// SecurityConfig holds authentication and request-limiting settings.
//
// AuthMode selects how requests are authenticated:
//   - "jwt":  validate HS256 bearer tokens issued by the identity provider
//   - "none": development escape hatch, every request runs as "dev-user"
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// CacheConfig holds TTL cache settings.
type CacheConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval"` // Background expiry sweep cadence (default: 10m)
	StreamTTL     time.Duration `koanf:"stream_ttl"`     // TTL for resolved stream sources (default: 30m)
	CatalogTTL    time.Duration `koanf:"catalog_ttl"`    // TTL for catalog listings (default: 5m)
}

// RoomsConfig holds watch-party room lifecycle settings.
type RoomsConfig struct {
	TTL             time.Duration `koanf:"ttl"`              // Room lifetime from creation (default: 24h)
	CodeMaxAttempts int           `koanf:"code_max_attempts"` // Bounded retry for unique code generation
}

// UpstreamConfig holds settings for the external content sources.
// Each source shares the same client shape: base URL, timeout, and a
// circuit breaker guarding repeated failures.
type UpstreamConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	BreakerMaxFail uint32        `koanf:"breaker_max_fail"`
	BreakerCooloff time.Duration `koanf:"breaker_cooloff"`

	DramaBoxURL string `koanf:"dramabox_url"`
	NetShortURL string `koanf:"netshort_url"`
	MeloloURL   string `koanf:"melolo_url"`
	AnimeURL    string `koanf:"anime_url"`
	MovieBoxURL string `koanf:"moviebox_url"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for missing or malformed values.
// Called by Load(); returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Security.AuthMode {
	case "jwt":
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("security.jwt_secret is required when auth_mode is jwt")
		}
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters")
		}
	case "none":
		if c.IsProduction() {
			return fmt.Errorf("security.auth_mode none is not allowed in production")
		}
	default:
		return fmt.Errorf("security.auth_mode must be jwt or none, got %q", c.Security.AuthMode)
	}

	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache.sweep_interval must be positive, got %s", c.Cache.SweepInterval)
	}
	if c.Rooms.TTL <= 0 {
		return fmt.Errorf("rooms.ttl must be positive, got %s", c.Rooms.TTL)
	}
	if c.Rooms.CodeMaxAttempts < 1 {
		return fmt.Errorf("rooms.code_max_attempts must be at least 1, got %d", c.Rooms.CodeMaxAttempts)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("security.rate_limit_reqs must be at least 1, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("security.rate_limit_window must be positive, got %s", c.Security.RateLimitWindow)
		}
	}

	return nil
}

// IsProduction reports whether the server runs with production checks enabled.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
