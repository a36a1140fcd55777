// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import "time"

// Redirect is a row of the redirects table.
type Redirect struct {
	ID             int64
	SourcePath     string
	DestinationURL string
	RedirectType   int64
	PreserveQuery  bool
	Status         string
	CreatedBy      string
	CreatedAt      time.Time
	ModifiedAt     time.Time
}

// Click is a row of the clicks table.
type Click struct {
	ID             int64
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

// Option is a row of the options table.
type Option struct {
	Name  string
	Value string
}

// Event is a row of the events table.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// QrCode is a row of the qr_codes table.
type QrCode struct {
	RedirectID  int64
	PngPath     string
	SvgPath     string
	GeneratedAt time.Time
}
