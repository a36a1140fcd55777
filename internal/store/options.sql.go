// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import "context"

const getOption = `SELECT value FROM options WHERE name = ?`

// GetOption returns an option value or sql.ErrNoRows.
func (q *Queries) GetOption(ctx context.Context, name string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getOption, name).Scan(&value)
	return value, err
}

// InsertOptionIfAbsent stores value only when name has no value yet.
// It reports whether the row was inserted.
func (q *Queries) InsertOptionIfAbsent(ctx context.Context, name, value string) (bool, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.insertIgnore+` INTO options (name, value) VALUES (?, ?)`, name, value)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpsertOption stores value under name, replacing any previous value.
func (q *Queries) UpsertOption(ctx context.Context, name, value string) error {
	_, err := q.db.ExecContext(ctx, q.dialect.upsertOption, name, value)
	return err
}

const listOptions = `SELECT name, value FROM options ORDER BY name`

// ListOptions returns every stored option.
func (q *Queries) ListOptions(ctx context.Context) ([]Option, error) {
	rows, err := q.db.QueryContext(ctx, listOptions)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.Name, &o.Value); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
