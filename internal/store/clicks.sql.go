// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// CreateClickParams holds the values for a new click row.
type CreateClickParams struct {
	RedirectID     int64
	ClickTimestamp time.Time
	ClientHash     string
	CountryCode    string
	DeviceClass    string
	Referrer       string
	UserAgent      string
	Browser        string
	OS             string
	IsBot          bool
}

const createClick = `INSERT INTO clicks (
    redirect_id, click_timestamp, client_hash, country_code, device_class, referrer, user_agent, browser, os, is_bot
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateClick inserts a click and returns its id.
func (q *Queries) CreateClick(ctx context.Context, arg CreateClickParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createClick,
		arg.RedirectID,
		arg.ClickTimestamp.UTC(),
		arg.ClientHash,
		arg.CountryCode,
		arg.DeviceClass,
		arg.Referrer,
		arg.UserAgent,
		arg.Browser,
		arg.OS,
		arg.IsBot,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const deleteClicksBefore = `DELETE FROM clicks WHERE click_timestamp < ?`

// DeleteClicksBefore removes clicks strictly older than cutoff.
func (q *Queries) DeleteClicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteClicksBefore, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listClicks = `SELECT id, redirect_id, click_timestamp, client_hash, country_code, device_class,
    referrer, user_agent, browser, os, is_bot
FROM clicks
WHERE (? = 0 OR redirect_id = ?)
ORDER BY click_timestamp DESC, id DESC
LIMIT ?`

// ListClicks returns the most recent clicks, optionally for one redirect (redirectID 0 = all).
func (q *Queries) ListClicks(ctx context.Context, redirectID, limit int64) ([]Click, error) {
	rows, err := q.db.QueryContext(ctx, listClicks, redirectID, redirectID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Click
	for rows.Next() {
		var c Click
		if err := rows.Scan(
			&c.ID,
			&c.RedirectID,
			&c.ClickTimestamp,
			&c.ClientHash,
			&c.CountryCode,
			&c.DeviceClass,
			&c.Referrer,
			&c.UserAgent,
			&c.Browser,
			&c.OS,
			&c.IsBot,
		); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// ClickFilter restricts reporting queries to [From, To) and optionally one redirect.
type ClickFilter struct {
	From       time.Time
	To         time.Time
	RedirectID int64 // 0 = all redirects
}

const clickFilterWhere = ` WHERE click_timestamp >= ? AND click_timestamp < ? AND (? = 0 OR redirect_id = ?)`

func (f ClickFilter) args() []any {
	return []any{f.From.UTC(), f.To.UTC(), f.RedirectID, f.RedirectID}
}

// CountClicks counts clicks matching the filter.
func (q *Queries) CountClicks(ctx context.Context, f ClickFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks`+clickFilterWhere, f.args()...).Scan(&n)
	return n, err
}

// CountUniqueClicks counts distinct client hashes matching the filter.
func (q *Queries) CountUniqueClicks(ctx context.Context, f ClickFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT client_hash) FROM clicks`+clickFilterWhere, f.args()...).Scan(&n)
	return n, err
}

// LabelCount is a grouped count keyed by a text label.
type LabelCount struct {
	Label string
	Count int64
}

func (q *Queries) queryLabelCounts(ctx context.Context, query string, args ...any) ([]LabelCount, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []LabelCount
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		items = append(items, lc)
	}
	return items, rows.Err()
}

// ClicksByDay groups clicks by UTC calendar day (YYYY-MM-DD), oldest first.
// Days without clicks are absent.
func (q *Queries) ClicksByDay(ctx context.Context, f ClickFilter) ([]LabelCount, error) {
	day := q.dialect.dayExpr
	query := `SELECT ` + day + ` AS day, COUNT(*) FROM clicks` + clickFilterWhere +
		` GROUP BY ` + day + ` ORDER BY day`
	return q.queryLabelCounts(ctx, query, f.args()...)
}

// ClicksByCountry groups clicks with a known country, most frequent first.
func (q *Queries) ClicksByCountry(ctx context.Context, f ClickFilter, limit int64) ([]LabelCount, error) {
	query := `SELECT country_code, COUNT(*) AS n FROM clicks` + clickFilterWhere +
		` AND country_code <> '' GROUP BY country_code ORDER BY n DESC, country_code LIMIT ?`
	return q.queryLabelCounts(ctx, query, append(f.args(), limit)...)
}

// ClicksByDevice groups clicks by device class, most frequent first.
func (q *Queries) ClicksByDevice(ctx context.Context, f ClickFilter) ([]LabelCount, error) {
	query := `SELECT device_class, COUNT(*) AS n FROM clicks` + clickFilterWhere +
		` GROUP BY device_class ORDER BY n DESC, device_class`
	return q.queryLabelCounts(ctx, query, f.args()...)
}

// TopReferrers groups clicks with a referrer, most frequent first.
func (q *Queries) TopReferrers(ctx context.Context, f ClickFilter, limit int64) ([]LabelCount, error) {
	query := `SELECT referrer, COUNT(*) AS n FROM clicks` + clickFilterWhere +
		` AND referrer <> '' GROUP BY referrer ORDER BY n DESC, referrer LIMIT ?`
	return q.queryLabelCounts(ctx, query, append(f.args(), limit)...)
}

// RedirectClickCount is a per-redirect click total.
type RedirectClickCount struct {
	RedirectID     int64
	SourcePath     string
	DestinationURL string
	Clicks         int64
	UniqueClicks   int64
}

const topRedirects = `SELECT r.id, r.source_path, r.destination_url, COUNT(c.id) AS clicks, COUNT(DISTINCT c.client_hash)
FROM clicks c
JOIN redirects r ON r.id = c.redirect_id
WHERE c.click_timestamp >= ? AND c.click_timestamp < ?
GROUP BY r.id, r.source_path, r.destination_url
ORDER BY clicks DESC, r.id
LIMIT ?`

// TopRedirects returns the most clicked redirects in [from, to).
func (q *Queries) TopRedirects(ctx context.Context, from, to time.Time, limit int64) ([]RedirectClickCount, error) {
	rows, err := q.db.QueryContext(ctx, topRedirects, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []RedirectClickCount
	for rows.Next() {
		var rc RedirectClickCount
		if err := rows.Scan(&rc.RedirectID, &rc.SourcePath, &rc.DestinationURL, &rc.Clicks, &rc.UniqueClicks); err != nil {
			return nil, err
		}
		items = append(items, rc)
	}
	return items, rows.Err()
}

// ExportedClick is a click joined with its rule, as written to CSV exports.
type ExportedClick struct {
	RedirectID     int64
	SourcePath     string
	DestinationURL string
	ClickTimestamp time.Time
	CountryCode    string
	DeviceClass    string
	Referrer       string
}

const exportClicks = `SELECT c.redirect_id, r.source_path, r.destination_url, c.click_timestamp,
    c.country_code, c.device_class, c.referrer
FROM clicks c
JOIN redirects r ON r.id = c.redirect_id
WHERE c.click_timestamp >= ? AND c.click_timestamp < ? AND (? = 0 OR c.redirect_id = ?)
ORDER BY c.click_timestamp DESC, c.id DESC`

// ExportClicks streams the clicks matching f, newest first, to fn. Iteration
// stops at the first error fn returns.
func (q *Queries) ExportClicks(ctx context.Context, f ClickFilter, fn func(ExportedClick) error) error {
	rows, err := q.db.QueryContext(ctx, exportClicks, f.args()...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var c ExportedClick
		if err := rows.Scan(
			&c.RedirectID,
			&c.SourcePath,
			&c.DestinationURL,
			&c.ClickTimestamp,
			&c.CountryCode,
			&c.DeviceClass,
			&c.Referrer,
		); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return rows.Err()
}
