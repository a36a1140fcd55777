// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package analytics records redirect clicks and reports on them.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/store"
)

// Stored field limits.
const (
	maxUserAgentLength = 1024
	maxReferrerLength  = 2048
)

// timeNow is overridable in tests.
var timeNow = time.Now

var textPolicy = bluemonday.StrictPolicy()

// ClickInput is what the dispatcher knows about a hit.
type ClickInput struct {
	RedirectID  int64
	ClientIP    string
	UserAgent   string
	Referrer    string
	CountryCode string
}

// Tracker persists click events.
type Tracker struct {
	queries *store.Queries
	salt    SaltProvider
	logger  *slog.Logger
}

// NewTracker creates a Tracker.
func NewTracker(queries *store.Queries, salt SaltProvider, logger *slog.Logger) *Tracker {
	return &Tracker{queries: queries, salt: salt, logger: logger}
}

// Record writes one click event. Every call writes a row; there is no
// deduplication. Failures wrap model.ErrTrack.
func (t *Tracker) Record(ctx context.Context, in ClickInput) (*model.ClickEvent, error) {
	salt, err := t.salt.Salt(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrTrack, err)
	}

	ua := clean(in.UserAgent, maxUserAgentLength)
	agent := parseAgent(ua)
	ev := &model.ClickEvent{
		RedirectID:  in.RedirectID,
		Timestamp:   timeNow().UTC(),
		ClientHash:  HashClient(in.ClientIP, salt),
		CountryCode: NormalizeCountry(in.CountryCode),
		DeviceClass: ClassifyDevice(ua),
		Referrer:    clean(in.Referrer, maxReferrerLength),
		UserAgent:   ua,
		Browser:     agent.Browser,
		OS:          agent.OS,
		IsBot:       agent.Bot,
	}

	id, err := t.queries.CreateClick(ctx, store.CreateClickParams{
		RedirectID:     ev.RedirectID,
		ClickTimestamp: ev.Timestamp,
		ClientHash:     ev.ClientHash,
		CountryCode:    ev.CountryCode,
		DeviceClass:    string(ev.DeviceClass),
		Referrer:       ev.Referrer,
		UserAgent:      ev.UserAgent,
		Browser:        ev.Browser,
		OS:             ev.OS,
		IsBot:          ev.IsBot,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: redirect %d: %w", model.ErrTrack, in.RedirectID, err)
	}
	ev.ID = id

	t.logger.Debug("click recorded", "redirect_id", ev.RedirectID, "device", ev.DeviceClass, "country", ev.CountryCode)
	return ev, nil
}

// Purge deletes events older than cutoff and returns how many were removed.
func (t *Tracker) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := t.queries.DeleteClicksBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging clicks before %s: %w", cutoff.UTC().Format(time.RFC3339), err)
	}
	if n > 0 {
		t.logger.Info("clicks purged", "count", n, "cutoff", cutoff.UTC())
	}
	return n, nil
}

// HashClient returns hex(sha256(ip + salt)).
func HashClient(ip, salt string) string {
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])
}

// clean strips markup and control characters and truncates to max bytes on a
// rune boundary. Entities escaped by the sanitizer are decoded again so
// query strings keep their ampersands.
func clean(s string, max int) string {
	s = strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
