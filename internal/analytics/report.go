// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/olegiv/hoppr-go/internal/geoip"
	"github.com/olegiv/hoppr-go/internal/store"
)

const dayLayout = "2006-01-02"

// Range selects clicks in [From, To) and optionally a single redirect.
type Range struct {
	From       time.Time
	To         time.Time
	RedirectID int64
}

// LastDays returns the range covering the last n UTC days including today.
func LastDays(n int, now time.Time) Range {
	if n < 1 {
		n = 1
	}
	end := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	return Range{From: end.AddDate(0, 0, -n), To: end}
}

func (r Range) filter() store.ClickFilter {
	return store.ClickFilter{From: r.From, To: r.To, RedirectID: r.RedirectID}
}

// Summary is the headline numbers for a range.
type Summary struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	RedirectID   int64     `json:"redirect_id,omitempty"`
	TotalClicks  int64     `json:"total_clicks"`
	UniqueClicks int64     `json:"unique_clicks"`
}

// Count is a labelled click count.
type Count struct {
	Label string `json:"label"`
	Name  string `json:"name,omitempty"` // display name, set for countries
	Count int64  `json:"count"`
}

// DayCount is the click total for one UTC day.
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// RedirectCount is the click total for one redirect.
type RedirectCount struct {
	RedirectID     int64  `json:"redirect_id"`
	SourcePath     string `json:"source_path"`
	DestinationURL string `json:"destination_url"`
	Clicks         int64  `json:"clicks"`
	UniqueClicks   int64  `json:"unique_clicks"`
}

// Reporter answers aggregate questions about recorded clicks.
type Reporter struct {
	queries *store.Queries
}

// NewReporter creates a Reporter.
func NewReporter(queries *store.Queries) *Reporter {
	return &Reporter{queries: queries}
}

// CountClicks counts clicks in the range.
func (r *Reporter) CountClicks(ctx context.Context, rng Range) (int64, error) {
	n, err := r.queries.CountClicks(ctx, rng.filter())
	if err != nil {
		return 0, fmt.Errorf("counting clicks: %w", err)
	}
	return n, nil
}

// CountUnique counts distinct clients in the range.
func (r *Reporter) CountUnique(ctx context.Context, rng Range) (int64, error) {
	n, err := r.queries.CountUniqueClicks(ctx, rng.filter())
	if err != nil {
		return 0, fmt.Errorf("counting unique clicks: %w", err)
	}
	return n, nil
}

// Summary returns total and unique clicks for the range.
func (r *Reporter) Summary(ctx context.Context, rng Range) (Summary, error) {
	total, err := r.CountClicks(ctx, rng)
	if err != nil {
		return Summary{}, err
	}
	unique, err := r.CountUnique(ctx, rng)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		From:         rng.From.UTC(),
		To:           rng.To.UTC(),
		RedirectID:   rng.RedirectID,
		TotalClicks:  total,
		UniqueClicks: unique,
	}, nil
}

// DailyClicks returns one entry per UTC day in the range, including days
// without clicks.
func (r *Reporter) DailyClicks(ctx context.Context, rng Range) ([]DayCount, error) {
	rows, err := r.queries.ClicksByDay(ctx, rng.filter())
	if err != nil {
		return nil, fmt.Errorf("daily clicks: %w", err)
	}
	byDay := lo.SliceToMap(rows, func(lc store.LabelCount) (string, int64) {
		return lc.Label, lc.Count
	})

	var out []DayCount
	start := rng.From.UTC().Truncate(24 * time.Hour)
	for d := start; d.Before(rng.To.UTC()); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		out = append(out, DayCount{Day: key, Count: byDay[key]})
	}
	return out, nil
}

// ByCountry returns the top countries.
func (r *Reporter) ByCountry(ctx context.Context, rng Range, limit int64) ([]Count, error) {
	rows, err := r.queries.ClicksByCountry(ctx, rng.filter(), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("clicks by country: %w", err)
	}
	counts := toCounts(rows)
	for i := range counts {
		counts[i].Name = geoip.CountryName(counts[i].Label)
	}
	return counts, nil
}

// ByDevice returns clicks per device class.
func (r *Reporter) ByDevice(ctx context.Context, rng Range) ([]Count, error) {
	rows, err := r.queries.ClicksByDevice(ctx, rng.filter())
	if err != nil {
		return nil, fmt.Errorf("clicks by device: %w", err)
	}
	return toCounts(rows), nil
}

// TopReferrers returns the most frequent referrers.
func (r *Reporter) TopReferrers(ctx context.Context, rng Range, limit int64) ([]Count, error) {
	rows, err := r.queries.TopReferrers(ctx, rng.filter(), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("top referrers: %w", err)
	}
	return toCounts(rows), nil
}

// TopRedirects returns the most clicked redirects. RedirectID is ignored.
func (r *Reporter) TopRedirects(ctx context.Context, rng Range, limit int64) ([]RedirectCount, error) {
	rows, err := r.queries.TopRedirects(ctx, rng.From, rng.To, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("top redirects: %w", err)
	}
	return lo.Map(rows, func(rc store.RedirectClickCount, _ int) RedirectCount {
		return RedirectCount(rc)
	}), nil
}

func toCounts(rows []store.LabelCount) []Count {
	return lo.Map(rows, func(lc store.LabelCount, _ int) Count {
		return Count{Label: lc.Label, Count: lc.Count}
	})
}

func clampLimit(limit int64) int64 {
	if limit <= 0 || limit > 100 {
		return 10
	}
	return limit
}
