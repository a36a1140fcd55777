// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
)

type fakeLookup map[string]string

func (f fakeLookup) LookupCountry(ip string) string { return f[ip] }

func TestLookup_Disabled(t *testing.T) {
	g := NewLookup()
	if err := g.Init(""); err != nil {
		t.Fatalf("Init(\"\") error: %v", err)
	}
	if g.IsEnabled() {
		t.Error("lookup should be disabled without a path")
	}
	if got := g.LookupCountry("8.8.8.8"); got != "" {
		t.Errorf("LookupCountry() = %q, want empty", got)
	}
	if err := g.Reload(); err != nil {
		t.Errorf("Reload() error: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestLookup_MissingFile(t *testing.T) {
	g := NewLookup()
	err := g.Init(filepath.Join(t.TempDir(), "missing.mmdb"))
	if err == nil {
		t.Fatal("expected error for missing database")
	}
	if g.IsEnabled() {
		t.Error("lookup should stay disabled")
	}
}

func TestCountryFromRequest(t *testing.T) {
	lookup := fakeLookup{"8.8.8.8": "US"}

	tests := []struct {
		name    string
		headers map[string]string
		ip      string
		lookup  CountryLookup
		want    string
	}{
		{"cloudflare header", map[string]string{"CF-IPCountry": "de"}, "8.8.8.8", lookup, "de"},
		{"proxy header", map[string]string{"X-Country-Code": "FR"}, "8.8.8.8", lookup, "FR"},
		{"cloudflare unknown falls through", map[string]string{"CF-IPCountry": "XX"}, "8.8.8.8", lookup, "US"},
		{"database", nil, "8.8.8.8", lookup, "US"},
		{"nil lookup", nil, "8.8.8.8", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := CountryFromRequest(r, tt.ip, tt.lookup); got != tt.want {
				t.Errorf("CountryFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCountryName(t *testing.T) {
	if got := CountryName("de"); got != "Germany" {
		t.Errorf("CountryName(de) = %q", got)
	}
	if got := CountryName(""); got != "Unknown" {
		t.Errorf("CountryName(\"\") = %q", got)
	}
	if got := CountryName("ZZ"); got != "ZZ" {
		t.Errorf("CountryName(ZZ) = %q", got)
	}
}
