// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"net"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		private bool
	}{
		{"loopback", "127.0.0.1", true},
		{"10.x.x.x", "10.0.0.1", true},
		{"172.16.x.x", "172.16.0.1", true},
		{"192.168.x.x", "192.168.1.1", true},
		{"link-local", "169.254.169.254", true},
		{"this network", "0.0.0.0", true},
		{"CGNAT", "100.64.0.1", true},
		{"documentation", "192.0.2.1", true},
		{"multicast", "224.0.0.1", true},
		{"reserved", "240.0.0.1", true},
		{"mapped loopback", "::ffff:127.0.0.1", true},

		{"public cloudflare", "1.1.1.1", false},
		{"public google", "8.8.8.8", false},
		{"172.32.x.x public", "172.32.0.1", false},

		{"ipv6 loopback", "::1", true},
		{"ipv6 link-local", "fe80::1", true},
		{"ipv6 unique-local", "fd00::1", true},
		{"ipv6 documentation", "2001:db8::1", true},
		{"ipv6 public", "2606:4700:4700::1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP %q", tt.ip)
			}
			if got := IsPrivateIP(ip); got != tt.private {
				t.Errorf("IsPrivateIP(%s) = %v, want %v", tt.ip, got, tt.private)
			}
		})
	}
}

func TestIsPrivateIP_Nil(t *testing.T) {
	if !IsPrivateIP(nil) {
		t.Error("IsPrivateIP(nil) should return true (deny by default)")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote only", nil, "203.0.114.7:5555", "203.0.114.7"},
		{"cloudflare first", map[string]string{"CF-Connecting-IP": "8.8.8.8", "X-Forwarded-For": "1.1.1.1"}, "10.0.0.1:1", "8.8.8.8"},
		{"skips private hops", map[string]string{"X-Forwarded-For": "10.0.0.5, 192.168.1.1, 9.9.9.9"}, "10.0.0.1:1", "9.9.9.9"},
		{"all private falls back", map[string]string{"X-Forwarded-For": "10.0.0.5"}, "172.16.0.1:80", "172.16.0.1"},
		{"forwarded rfc7239", map[string]string{"Forwarded": `for="[2606:4700::1]:443";proto=https`}, "10.0.0.1:1", "2606:4700::1"},
		{"garbage ignored", map[string]string{"Client-IP": "not-an-ip"}, "1.2.3.4:80", "1.2.3.4"},
		{"remote without port", nil, "1.2.3.4", "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSSRFSafeDialContext(t *testing.T) {
	dialFn := SSRFSafeDialContext(&net.Dialer{})

	t.Run("blocks loopback", func(t *testing.T) {
		_, err := dialFn(t.Context(), "tcp", "127.0.0.1:80")
		if err == nil || !strings.Contains(err.Error(), "private IP") {
			t.Errorf("expected 'private IP' error, got: %v", err)
		}
	})

	t.Run("blocks private range", func(t *testing.T) {
		if _, err := dialFn(t.Context(), "tcp", "10.0.0.1:80"); err == nil {
			t.Error("expected error connecting to 10.0.0.1, got nil")
		}
	})

	t.Run("rejects bad address", func(t *testing.T) {
		if _, err := dialFn(t.Context(), "tcp", "no-port"); err == nil {
			t.Error("expected error for address without port")
		}
	})
}
