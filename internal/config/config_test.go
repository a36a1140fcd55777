// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverSQLite)
	}
	if cfg.DBDSN != "./data/hoppr.db" {
		t.Errorf("DBDSN = %q, want %q", cfg.DBDSN, "./data/hoppr.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.DNSTimeout != 2*time.Second {
		t.Errorf("DNSTimeout = %s, want 2s", cfg.DNSTimeout)
	}
	if cfg.DNSCacheTTL != time.Minute {
		t.Errorf("DNSCacheTTL = %s, want 1m", cfg.DNSCacheTTL)
	}
	if cfg.AdminAPIEnabled() {
		t.Error("AdminAPIEnabled() = true, want false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "HOPPR_DB_DRIVER", "mysql")
	setEnv(t, "HOPPR_DB_DSN", "user:pass@tcp(db:3306)/hoppr")
	setEnv(t, "HOPPR_SERVER_HOST", "0.0.0.0")
	setEnv(t, "HOPPR_SERVER_PORT", "3000")
	setEnv(t, "HOPPR_ENV", "production")
	setEnv(t, "HOPPR_LOG_LEVEL", "debug")
	setEnv(t, "HOPPR_BASE_URL", "https://go.example.com/")
	setEnv(t, "HOPPR_ADMIN_TOKEN_HASH", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
	setEnv(t, "HOPPR_DNS_TIMEOUT", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBDriver != DriverMySQL {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverMySQL)
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "0.0.0.0:3000")
	}
	if cfg.BaseURL != "https://go.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
	if !cfg.AdminAPIEnabled() {
		t.Error("AdminAPIEnabled() = false, want true")
	}
	if cfg.DNSTimeout != 500*time.Millisecond {
		t.Errorf("DNSTimeout = %s, want 500ms", cfg.DNSTimeout)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "HOPPR_DB_DRIVER", "postgres"},
		{"bad port", "HOPPR_SERVER_PORT", "not-a-number"},
		{"plain token", "HOPPR_ADMIN_TOKEN_HASH", "secret"},
		{"zero dns timeout", "HOPPR_DNS_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q: expected error", tt.key, tt.val)
			}
		})
	}
}

func TestConfig_UseRedisCache(t *testing.T) {
	cfg := Config{}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() = true without URL")
	}
	cfg.RedisURL = "redis://localhost:6379/0"
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() = false with URL")
	}
}
