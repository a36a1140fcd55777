// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// SaveQRCodeParams holds the values for a QR code row.
type SaveQRCodeParams struct {
	RedirectID  int64
	PngPath     string
	SvgPath     string
	GeneratedAt time.Time
}

const deleteQRCode = `DELETE FROM qr_codes WHERE redirect_id = ?`

const insertQRCode = `INSERT INTO qr_codes (redirect_id, png_path, svg_path, generated_at) VALUES (?, ?, ?, ?)`

// SaveQRCode replaces the QR code row for a redirect.
// Callers that need atomicity run it inside WithTx.
func (q *Queries) SaveQRCode(ctx context.Context, arg SaveQRCodeParams) error {
	if _, err := q.db.ExecContext(ctx, deleteQRCode, arg.RedirectID); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, insertQRCode, arg.RedirectID, arg.PngPath, arg.SvgPath, arg.GeneratedAt.UTC())
	return err
}

const getQRCode = `SELECT redirect_id, png_path, svg_path, generated_at FROM qr_codes WHERE redirect_id = ?`

// GetQRCode returns the QR code row for a redirect or sql.ErrNoRows.
func (q *Queries) GetQRCode(ctx context.Context, redirectID int64) (QrCode, error) {
	var qr QrCode
	err := q.db.QueryRowContext(ctx, getQRCode, redirectID).Scan(&qr.RedirectID, &qr.PngPath, &qr.SvgPath, &qr.GeneratedAt)
	return qr, err
}

// DeleteQRCode removes the QR code row for a redirect.
func (q *Queries) DeleteQRCode(ctx context.Context, redirectID int64) error {
	_, err := q.db.ExecContext(ctx, deleteQRCode, redirectID)
	return err
}
