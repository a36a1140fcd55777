// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/olegiv/hoppr-go/internal/store"
)

// saltOption is the options table key holding the client hash salt.
const saltOption = "analytics_salt"

// SaltProvider supplies the salt mixed into client hashes.
type SaltProvider interface {
	Salt(ctx context.Context) (string, error)
}

// StoreSaltProvider keeps one process-wide salt in the options table. The
// first caller creates it; racing processes converge on whichever row won
// the insert.
type StoreSaltProvider struct {
	queries *store.Queries

	mu   sync.Mutex
	salt string
}

// NewStoreSaltProvider creates a provider backed by queries.
func NewStoreSaltProvider(queries *store.Queries) *StoreSaltProvider {
	return &StoreSaltProvider{queries: queries}
}

// Salt returns the stored salt, creating it on first use.
func (p *StoreSaltProvider) Salt(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.salt != "" {
		return p.salt, nil
	}

	candidate, err := randomSalt()
	if err != nil {
		return "", err
	}
	if _, err := p.queries.InsertOptionIfAbsent(ctx, saltOption, candidate); err != nil {
		return "", fmt.Errorf("creating salt: %w", err)
	}

	stored, err := p.queries.GetOption(ctx, saltOption)
	if err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}
	if stored == "" {
		return "", fmt.Errorf("reading salt: empty value")
	}
	p.salt = stored
	return p.salt, nil
}

// StaticSalt is a fixed salt, for tests and single-shot tools.
type StaticSalt string

// Salt returns s.
func (s StaticSalt) Salt(context.Context) (string, error) {
	return string(s), nil
}

func randomSalt() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}
