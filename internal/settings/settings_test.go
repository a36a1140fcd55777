package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/olegiv/hoppr-go/internal/testutil"
)

func TestDefaultsAreValid(t *testing.T) {
	s := Defaults()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"ttl too low", func(s *Settings) { s.CacheTTLSeconds = 299 }, true},
		{"ttl too high", func(s *Settings) { s.CacheTTLSeconds = 86401 }, true},
		{"ttl bounds", func(s *Settings) { s.CacheTTLSeconds = 300 }, false},
		{"retention forever", func(s *Settings) { s.AnalyticsRetentionDays = 0 }, false},
		{"retention odd", func(s *Settings) { s.AnalyticsRetentionDays = 7 }, true},
		{"qr too small", func(s *Settings) { s.QRSize = 99 }, true},
		{"qr max", func(s *Settings) { s.QRSize = 500 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSetting) {
				t.Errorf("error should wrap ErrInvalidSetting: %v", err)
			}
		})
	}
}

func TestCleanDomains(t *testing.T) {
	got := CleanDomains([]string{" Example.COM ", "https://shop.example.com/path", "", "example.com", ".trailing.org."})
	want := []string{"example.com", "shop.example.com", "trailing.org"}
	if len(got) != len(want) {
		t.Fatalf("CleanDomains = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CleanDomains[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProvider_UpdateAndLoad(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()
	logger := testutil.TestLoggerSilent()

	p := NewProvider(db.Queries(), logger)
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.CacheTTL() != time.Hour {
		t.Errorf("default CacheTTL = %v", p.CacheTTL())
	}
	if !p.SecurityChecksEnabled() {
		t.Error("security checks should default on")
	}

	s := p.Get()
	s.CacheTTLSeconds = 600
	s.SecurityChecksEnabled = false
	s.AllowedDomains = []string{"Example.com", "example.com", "cdn.example.net"}
	s.AnalyticsRetentionDays = 365
	s.QRSize = 300
	s.QRAutoGenerate = false
	if _, err := p.Update(ctx, s); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fresh := NewProvider(db.Queries(), logger)
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fresh.CacheTTL() != 10*time.Minute {
		t.Errorf("CacheTTL = %v, want 10m", fresh.CacheTTL())
	}
	if fresh.SecurityChecksEnabled() {
		t.Error("SecurityChecksEnabled should be false")
	}
	if d := fresh.AllowedDomains(); len(d) != 2 || d[0] != "example.com" {
		t.Errorf("AllowedDomains = %v", d)
	}
	if fresh.Retention() != 365*24*time.Hour {
		t.Errorf("Retention = %v", fresh.Retention())
	}
	if fresh.QRSize() != 300 || fresh.QRAutoGenerate() {
		t.Errorf("QR settings = %d %v", fresh.QRSize(), fresh.QRAutoGenerate())
	}
}

func TestProvider_UpdateRejectsInvalid(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	p := NewProvider(db.Queries(), testutil.TestLoggerSilent())
	s := Defaults()
	s.CacheTTLSeconds = 10
	if _, err := p.Update(context.Background(), s); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("Update error = %v, want ErrInvalidSetting", err)
	}
	if p.CacheTTL() != time.Hour {
		t.Error("rejected update must not change current settings")
	}
}

func TestProvider_LoadIgnoresGarbage(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()
	q := db.Queries()

	_ = q.UpsertOption(ctx, KeyCacheTTL, "soon")
	_ = q.UpsertOption(ctx, KeyQRAutoGenerate, "maybe")

	p := NewProvider(q, testutil.TestLoggerSilent())
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.CacheTTL() != time.Hour || !p.QRAutoGenerate() {
		t.Errorf("garbage values should fall back to defaults: %+v", p.Get())
	}
}

func TestProvider_GetReturnsCopy(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	p := NewProvider(db.Queries(), testutil.TestLoggerSilent())
	s := Defaults()
	s.AllowedDomains = []string{"example.com"}
	if _, err := p.Update(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	got := p.Get()
	got.AllowedDomains[0] = "evil.com"
	if p.AllowedDomains()[0] != "example.com" {
		t.Error("Get must not expose internal slice")
	}
}
