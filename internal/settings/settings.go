// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package settings holds the operator-editable runtime settings. Values are
// persisted in the options table and served from memory.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/olegiv/hoppr-go/internal/store"
)

// Option names in the options table.
const (
	KeyCacheTTL               = "cache_ttl_seconds"
	KeyAnalyticsRetentionDays = "analytics_retention_days"
	KeySecurityChecksEnabled  = "security_checks_enabled"
	KeyAllowedDomains         = "allowed_domains"
	KeyQRSize                 = "qr_size"
	KeyQRAutoGenerate         = "qr_auto_generate"
)

// Bounds.
const (
	MinCacheTTLSeconds = 300
	MaxCacheTTLSeconds = 86400
	MinQRSize          = 100
	MaxQRSize          = 500
)

// RetentionChoices lists the accepted analytics retention periods in days.
// Zero keeps clicks forever.
var RetentionChoices = []int{30, 90, 365, 0}

// ErrInvalidSetting is returned by Update for out-of-range values.
var ErrInvalidSetting = errors.New("invalid setting")

// Settings is a snapshot of every runtime setting.
type Settings struct {
	CacheTTLSeconds        int      `json:"cache_ttl_seconds"`
	AnalyticsRetentionDays int      `json:"analytics_retention_days"`
	SecurityChecksEnabled  bool     `json:"security_checks_enabled"`
	AllowedDomains         []string `json:"allowed_domains"`
	QRSize                 int      `json:"qr_size"`
	QRAutoGenerate         bool     `json:"qr_auto_generate"`
}

// Defaults returns the settings used before anything is stored.
func Defaults() Settings {
	return Settings{
		CacheTTLSeconds:        3600,
		AnalyticsRetentionDays: 90,
		SecurityChecksEnabled:  true,
		AllowedDomains:         []string{},
		QRSize:                 200,
		QRAutoGenerate:         true,
	}
}

// Validate checks every field and cleans the allowed domain list.
func (s *Settings) Validate() error {
	var errs []error
	if s.CacheTTLSeconds < MinCacheTTLSeconds || s.CacheTTLSeconds > MaxCacheTTLSeconds {
		errs = append(errs, fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidSetting, KeyCacheTTL, MinCacheTTLSeconds, MaxCacheTTLSeconds))
	}
	if !slices.Contains(RetentionChoices, s.AnalyticsRetentionDays) {
		errs = append(errs, fmt.Errorf("%w: %s must be one of %v", ErrInvalidSetting, KeyAnalyticsRetentionDays, RetentionChoices))
	}
	if s.QRSize < MinQRSize || s.QRSize > MaxQRSize {
		errs = append(errs, fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidSetting, KeyQRSize, MinQRSize, MaxQRSize))
	}
	s.AllowedDomains = CleanDomains(s.AllowedDomains)
	return errors.Join(errs...)
}

// CleanDomains lowercases, trims and deduplicates a domain list. Entries may
// be given as URLs; only the host part is kept.
func CleanDomains(domains []string) []string {
	cleaned := lo.FilterMap(domains, func(d string, _ int) (string, bool) {
		d = strings.ToLower(strings.TrimSpace(d))
		if i := strings.Index(d, "://"); i >= 0 {
			d = d[i+3:]
		}
		if i := strings.IndexAny(d, "/?#"); i >= 0 {
			d = d[:i]
		}
		d = strings.Trim(d, ".")
		return d, d != ""
	})
	return lo.Uniq(cleaned)
}

// Provider serves settings from memory and persists changes.
type Provider struct {
	queries *store.Queries
	logger  *slog.Logger

	mu      sync.RWMutex
	current Settings
}

// NewProvider creates a provider holding the defaults. Call Load to read stored values.
func NewProvider(queries *store.Queries, logger *slog.Logger) *Provider {
	return &Provider{
		queries: queries,
		logger:  logger,
		current: Defaults(),
	}
}

// Load reads stored options. Missing or unparsable values keep their defaults.
func (p *Provider) Load(ctx context.Context) error {
	opts, err := p.queries.ListOptions(ctx)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	values := make(map[string]string, len(opts))
	for _, o := range opts {
		values[o.Name] = o.Value
	}

	s := Defaults()
	def := Defaults()
	if v, ok := values[KeyCacheTTL]; ok {
		s.CacheTTLSeconds = p.parseInt(KeyCacheTTL, v, def.CacheTTLSeconds)
	}
	if v, ok := values[KeyAnalyticsRetentionDays]; ok {
		s.AnalyticsRetentionDays = p.parseInt(KeyAnalyticsRetentionDays, v, def.AnalyticsRetentionDays)
	}
	if v, ok := values[KeySecurityChecksEnabled]; ok {
		s.SecurityChecksEnabled = p.parseBool(KeySecurityChecksEnabled, v, def.SecurityChecksEnabled)
	}
	if v, ok := values[KeyAllowedDomains]; ok {
		s.AllowedDomains = strings.Split(v, "\n")
	}
	if v, ok := values[KeyQRSize]; ok {
		s.QRSize = p.parseInt(KeyQRSize, v, def.QRSize)
	}
	if v, ok := values[KeyQRAutoGenerate]; ok {
		s.QRAutoGenerate = p.parseBool(KeyQRAutoGenerate, v, def.QRAutoGenerate)
	}

	if err := s.Validate(); err != nil {
		p.logger.Warn("stored settings out of range, using defaults", "error", err)
		s = Defaults()
	}

	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	return nil
}

// Update validates s, persists every field and makes it current.
func (p *Provider) Update(ctx context.Context, s Settings) (Settings, error) {
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	values := map[string]string{
		KeyCacheTTL:               strconv.Itoa(s.CacheTTLSeconds),
		KeyAnalyticsRetentionDays: strconv.Itoa(s.AnalyticsRetentionDays),
		KeySecurityChecksEnabled:  strconv.FormatBool(s.SecurityChecksEnabled),
		KeyAllowedDomains:         strings.Join(s.AllowedDomains, "\n"),
		KeyQRSize:                 strconv.Itoa(s.QRSize),
		KeyQRAutoGenerate:         strconv.FormatBool(s.QRAutoGenerate),
	}
	for _, key := range lo.Keys(values) {
		if err := p.queries.UpsertOption(ctx, key, values[key]); err != nil {
			return Settings{}, fmt.Errorf("saving %s: %w", key, err)
		}
	}

	p.mu.Lock()
	p.current = s
	p.mu.Unlock()

	p.logger.Info("settings updated",
		"cache_ttl_seconds", s.CacheTTLSeconds,
		"retention_days", s.AnalyticsRetentionDays,
		"security_checks", s.SecurityChecksEnabled,
		"allowed_domains", len(s.AllowedDomains),
	)
	return s, nil
}

// Get returns a copy of the current settings.
func (p *Provider) Get() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.current
	s.AllowedDomains = slices.Clone(s.AllowedDomains)
	return s
}

// CacheTTL returns the lookup cache TTL.
func (p *Provider) CacheTTL() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Duration(p.current.CacheTTLSeconds) * time.Second
}

// SecurityChecksEnabled reports whether destinations are resolved and checked.
func (p *Provider) SecurityChecksEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.SecurityChecksEnabled
}

// AllowedDomains returns the destination allowlist. Empty allows any host.
func (p *Provider) AllowedDomains() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.current.AllowedDomains)
}

// Retention returns how long clicks are kept, or zero for forever.
func (p *Provider) Retention() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Duration(p.current.AnalyticsRetentionDays) * 24 * time.Hour
}

// QRSize returns the QR image edge length in pixels.
func (p *Provider) QRSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.QRSize
}

// QRAutoGenerate reports whether QR codes follow rule changes.
func (p *Provider) QRAutoGenerate() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.QRAutoGenerate
}

func (p *Provider) parseInt(key, v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.logger.Warn("ignoring stored setting", "key", key, "value", v)
		return def
	}
	return n
}

func (p *Provider) parseBool(key, v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		p.logger.Warn("ignoring stored setting", "key", key, "value", v)
		return def
	}
	return b
}
