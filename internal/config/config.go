// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Supported database drivers.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // mattn/go-sqlite3, cgo
	DriverMySQL   = "mysql"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDriver   string `env:"HOPPR_DB_DRIVER" envDefault:"sqlite"`
	DBDSN      string `env:"HOPPR_DB_DSN" envDefault:"./data/hoppr.db"`
	ServerHost string `env:"HOPPR_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"HOPPR_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"HOPPR_ENV" envDefault:"development"`
	LogLevel   string `env:"HOPPR_LOG_LEVEL" envDefault:"info"`

	// BaseURL is the public origin used to build short links for QR codes.
	BaseURL string `env:"HOPPR_BASE_URL" envDefault:"http://localhost:8080"`

	// Admin API bearer token, stored as an argon2id hash (see -hash-token).
	AdminTokenHash string `env:"HOPPR_ADMIN_TOKEN_HASH"`

	// Cache configuration
	RedisURL     string `env:"HOPPR_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"HOPPR_CACHE_PREFIX" envDefault:"hoppr:"`  // Redis key prefix
	CacheMaxSize int    `env:"HOPPR_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// GeoIP configuration
	GeoIPDBPath string `env:"HOPPR_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file

	// QR code generation
	QRDir    string `env:"HOPPR_QR_DIR" envDefault:"./data/qr-codes"`
	QRAPIURL string `env:"HOPPR_QR_API_URL" envDefault:"https://api.qrserver.com/v1/create-qr-code/"`

	// Destination safety checks
	DNSTimeout  time.Duration `env:"HOPPR_DNS_TIMEOUT" envDefault:"2s"`
	DNSCacheTTL time.Duration `env:"HOPPR_DNS_CACHE_TTL" envDefault:"60s"`
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

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// AdminAPIEnabled returns true if an admin token hash is configured.
func (c Config) AdminAPIEnabled() bool {
	return c.AdminTokenHash != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.DBDriver {
	case DriverSQLite, DriverSQLite3, DriverMySQL:
	default:
		return nil, fmt.Errorf("HOPPR_DB_DRIVER must be one of sqlite, sqlite3, mysql; got %q", cfg.DBDriver)
	}

	if cfg.DNSTimeout <= 0 {
		return nil, fmt.Errorf("HOPPR_DNS_TIMEOUT must be positive, got %s", cfg.DNSTimeout)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.AdminTokenHash != "" && !strings.HasPrefix(cfg.AdminTokenHash, "$argon2id$") {
		return nil, fmt.Errorf("HOPPR_ADMIN_TOKEN_HASH must be an argon2id hash; "+
			"generate one with: hoppr -hash-token <token>")
	}

	if !cfg.AdminAPIEnabled() && !cfg.IsDevelopment() {
		slog.Warn("HOPPR_ADMIN_TOKEN_HASH is not set; admin API is disabled")
	}

	return cfg, nil
}
