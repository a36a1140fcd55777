// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const redirectColumns = `id, source_path, destination_url, redirect_type, preserve_query, status, created_by, created_at, modified_at`

func scanRedirect(row interface{ Scan(...any) error }) (Redirect, error) {
	var r Redirect
	err := row.Scan(
		&r.ID,
		&r.SourcePath,
		&r.DestinationURL,
		&r.RedirectType,
		&r.PreserveQuery,
		&r.Status,
		&r.CreatedBy,
		&r.CreatedAt,
		&r.ModifiedAt,
	)
	return r, err
}

func (q *Queries) queryRedirects(ctx context.Context, query string, args ...any) ([]Redirect, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Redirect
	for rows.Next() {
		r, err := scanRedirect(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateRedirectParams holds the values for a new redirect row.
type CreateRedirectParams struct {
	SourcePath     string
	DestinationURL string
	RedirectType   int64
	PreserveQuery  bool
	Status         string
	CreatedBy      string
	CreatedAt      time.Time
	ModifiedAt     time.Time
}

const createRedirect = `INSERT INTO redirects (
    source_path, destination_url, redirect_type, preserve_query, status, created_by, created_at, modified_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// CreateRedirect inserts a redirect and returns its id.
func (q *Queries) CreateRedirect(ctx context.Context, arg CreateRedirectParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createRedirect,
		arg.SourcePath,
		arg.DestinationURL,
		arg.RedirectType,
		arg.PreserveQuery,
		arg.Status,
		arg.CreatedBy,
		arg.CreatedAt.UTC(),
		arg.ModifiedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getRedirect = `SELECT ` + redirectColumns + ` FROM redirects WHERE id = ?`

// GetRedirect returns a redirect by id.
func (q *Queries) GetRedirect(ctx context.Context, id int64) (Redirect, error) {
	return scanRedirect(q.db.QueryRowContext(ctx, getRedirect, id))
}

const getRedirectBySource = `SELECT ` + redirectColumns + ` FROM redirects WHERE source_path = ?`

// GetRedirectBySource returns a redirect by source path regardless of status.
func (q *Queries) GetRedirectBySource(ctx context.Context, sourcePath string) (Redirect, error) {
	return scanRedirect(q.db.QueryRowContext(ctx, getRedirectBySource, sourcePath))
}

const getActiveRedirectBySource = `SELECT ` + redirectColumns + ` FROM redirects WHERE source_path = ? AND status = 'active'`

// GetActiveRedirectBySource returns the active redirect for a source path.
func (q *Queries) GetActiveRedirectBySource(ctx context.Context, sourcePath string) (Redirect, error) {
	return scanRedirect(q.db.QueryRowContext(ctx, getActiveRedirectBySource, sourcePath))
}

const listActiveRedirects = `SELECT ` + redirectColumns + ` FROM redirects WHERE status = 'active' ORDER BY id`

// ListActiveRedirects returns all active redirects ordered by id.
func (q *Queries) ListActiveRedirects(ctx context.Context) ([]Redirect, error) {
	return q.queryRedirects(ctx, listActiveRedirects)
}

// ListRedirectsParams filters the admin listing. Empty Status and Search match everything.
type ListRedirectsParams struct {
	Status string
	Search string
	Limit  int64
	Offset int64
}

const listRedirects = `SELECT ` + redirectColumns + ` FROM redirects
WHERE (? = '' OR status = ?)
  AND (? = '' OR source_path LIKE ? OR destination_url LIKE ?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

// ListRedirects returns a page of redirects, newest first.
func (q *Queries) ListRedirects(ctx context.Context, arg ListRedirectsParams) ([]Redirect, error) {
	like := "%" + arg.Search + "%"
	return q.queryRedirects(ctx, listRedirects,
		arg.Status, arg.Status,
		arg.Search, like, like,
		arg.Limit, arg.Offset,
	)
}

const countRedirects = `SELECT COUNT(*) FROM redirects
WHERE (? = '' OR status = ?)
  AND (? = '' OR source_path LIKE ? OR destination_url LIKE ?)`

// CountRedirects counts redirects matching the listing filter.
func (q *Queries) CountRedirects(ctx context.Context, status, search string) (int64, error) {
	like := "%" + search + "%"
	var n int64
	err := q.db.QueryRowContext(ctx, countRedirects, status, status, search, like, like).Scan(&n)
	return n, err
}

// UpdateRedirectParams holds the editable fields of a redirect.
type UpdateRedirectParams struct {
	ID             int64
	SourcePath     string
	DestinationURL string
	RedirectType   int64
	PreserveQuery  bool
	Status         string
	ModifiedAt     time.Time
}

const updateRedirect = `UPDATE redirects SET
    source_path = ?, destination_url = ?, redirect_type = ?, preserve_query = ?, status = ?, modified_at = ?
WHERE id = ?`

// UpdateRedirect rewrites a redirect row.
func (q *Queries) UpdateRedirect(ctx context.Context, arg UpdateRedirectParams) error {
	_, err := q.db.ExecContext(ctx, updateRedirect,
		arg.SourcePath,
		arg.DestinationURL,
		arg.RedirectType,
		arg.PreserveQuery,
		arg.Status,
		arg.ModifiedAt.UTC(),
		arg.ID,
	)
	return err
}

const updateRedirectStatus = `UPDATE redirects SET status = ?, modified_at = ? WHERE id = ?`

// UpdateRedirectStatus sets a redirect's status.
func (q *Queries) UpdateRedirectStatus(ctx context.Context, id int64, status string, modifiedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, updateRedirectStatus, status, modifiedAt.UTC(), id)
	return err
}

const deleteRedirect = `DELETE FROM redirects WHERE id = ?`

// DeleteRedirect removes a redirect and returns the number of deleted rows.
func (q *Queries) DeleteRedirect(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRedirect, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listRedirectsWithoutQRCode = `SELECT r.id, r.source_path, r.destination_url, r.redirect_type, r.preserve_query,
    r.status, r.created_by, r.created_at, r.modified_at
FROM redirects r
LEFT JOIN qr_codes qr ON qr.redirect_id = r.id
WHERE qr.redirect_id IS NULL
ORDER BY r.id
LIMIT ?`

// ListRedirectsWithoutQRCode returns redirects that have no generated QR code.
func (q *Queries) ListRedirectsWithoutQRCode(ctx context.Context, limit int64) ([]Redirect, error) {
	return q.queryRedirects(ctx, listRedirectsWithoutQRCode, limit)
}
