// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package redirect

import (
	"context"

	"github.com/olegiv/hoppr-go/internal/model"
)

// Lookup finds the active rule for a normalized key.
type Lookup interface {
	GetBySource(ctx context.Context, path string) (*model.RedirectRule, error)
}

// Matcher resolves request paths to rules.
type Matcher struct {
	lookup Lookup
}

// NewMatcher creates a Matcher backed by lookup.
func NewMatcher(lookup Lookup) *Matcher {
	return &Matcher{lookup: lookup}
}

// Match returns the rule for a request path and raw query, or nil.
// The key including the query wins over the key without it.
func (m *Matcher) Match(ctx context.Context, path, rawQuery string) (*model.RedirectRule, error) {
	full := path
	if rawQuery != "" {
		full += "?" + rawQuery
	}

	key := Normalize(full)
	if key == "" {
		return nil, nil
	}

	rule, err := m.lookup.GetBySource(ctx, key)
	if err != nil || rule != nil || rawQuery == "" {
		return rule, err
	}

	bare := NormalizeBare(full)
	if bare == "" || bare == key {
		return nil, nil
	}
	return m.lookup.GetBySource(ctx, bare)
}
