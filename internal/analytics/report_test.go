// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	r := LastDays(7, now)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), r.To)
}

func TestReporter(t *testing.T) {
	tr, q := setupTracker(t)
	ctx := context.Background()
	rep := NewReporter(q)

	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	defer func() { timeNow = time.Now }()

	timeNow = func() time.Time { return day1 }
	_, err := tr.Record(ctx, ClickInput{RedirectID: 1, ClientIP: "203.0.113.1", UserAgent: uaIPhone, CountryCode: "DE", Referrer: "https://a.example"})
	require.NoError(t, err)
	_, err = tr.Record(ctx, ClickInput{RedirectID: 1, ClientIP: "203.0.113.1", UserAgent: uaIPhone, CountryCode: "DE"})
	require.NoError(t, err)

	timeNow = func() time.Time { return day3 }
	_, err = tr.Record(ctx, ClickInput{RedirectID: 1, ClientIP: "203.0.113.2", UserAgent: uaChromeDesktop, CountryCode: "FR", Referrer: "https://a.example"})
	require.NoError(t, err)

	rng := Range{From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}

	sum, err := rep.Summary(ctx, rng)
	require.NoError(t, err)
	assert.EqualValues(t, 3, sum.TotalClicks)
	assert.EqualValues(t, 2, sum.UniqueClicks)

	daily, err := rep.DailyClicks(ctx, rng)
	require.NoError(t, err)
	assert.Equal(t, []DayCount{
		{Day: "2026-03-01", Count: 2},
		{Day: "2026-03-02", Count: 0},
		{Day: "2026-03-03", Count: 1},
	}, daily)

	countries, err := rep.ByCountry(ctx, rng, 5)
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Equal(t, Count{Label: "DE", Name: "Germany", Count: 2}, countries[0])
	assert.Equal(t, Count{Label: "FR", Name: "France", Count: 1}, countries[1])

	devices, err := rep.ByDevice(ctx, rng)
	require.NoError(t, err)
	assert.Equal(t, "mobile", devices[0].Label)

	refs, err := rep.TopReferrers(ctx, rng, 5)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.EqualValues(t, 2, refs[0].Count)

	top, err := rep.TopRedirects(ctx, rng, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "promo", top[0].SourcePath)
	assert.EqualValues(t, 3, top[0].Clicks)

	other, err := rep.Summary(ctx, Range{From: rng.From, To: rng.To, RedirectID: 42})
	require.NoError(t, err)
	assert.Zero(t, other.TotalClicks)
}
