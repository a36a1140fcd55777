// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olegiv/hoppr-go/internal/store"
)

var exportHeader = []string{
	"Redirect ID",
	"Source URL",
	"Destination URL",
	"Click Timestamp",
	"Country Code",
	"Device Type",
	"Referrer",
}

// ExportCSV writes the clicks in rng to w as CSV, newest first, and returns
// the number of data rows written.
func (r *Reporter) ExportCSV(ctx context.Context, rng Range, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("writing csv header: %w", err)
	}

	n := 0
	err := r.queries.ExportClicks(ctx, rng.filter(), func(c store.ExportedClick) error {
		n++
		return cw.Write([]string{
			strconv.FormatInt(c.RedirectID, 10),
			"/" + csvSafe(c.SourcePath),
			csvSafe(c.DestinationURL),
			c.ClickTimestamp.UTC().Format(time.DateTime),
			c.CountryCode,
			c.DeviceClass,
			csvSafe(c.Referrer),
		})
	})
	if err != nil {
		return n, fmt.Errorf("exporting clicks: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("flushing csv: %w", err)
	}
	return n, nil
}

// csvSafe neutralizes values a spreadsheet would evaluate as a formula.
func csvSafe(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}
