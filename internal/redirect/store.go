// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package redirect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/hoppr-go/internal/cache"
	"github.com/olegiv/hoppr-go/internal/hooks"
	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/store"
)

// cacheNamespace prefixes every lookup key in the shared cache.
const cacheNamespace = "redirect:"

// DefaultCacheTTL is used when no TTL source is configured.
const DefaultCacheTTL = time.Hour

// TTLSource supplies the current lookup cache TTL.
type TTLSource interface {
	CacheTTL() time.Duration
}

// cachedLookup is the cached result of a lookup. Misses are cached too.
type cachedLookup struct {
	Found bool               `json:"found"`
	Rule  model.RedirectRule `json:"rule"`
}

// Store reads redirect rules through a cache.
type Store struct {
	queries *store.Queries
	cache   *cache.TypedCache[cachedLookup]
	ttl     TTLSource
	group   singleflight.Group
	logger  *slog.Logger
}

// NewStore creates a Store. ttl may be nil.
func NewStore(queries *store.Queries, c cache.Cache, ttl TTLSource, logger *slog.Logger) *Store {
	return &Store{
		queries: queries,
		cache:   cache.NewTypedCache[cachedLookup](c, DefaultCacheTTL),
		ttl:     ttl,
		logger:  logger,
	}
}

func (s *Store) cacheTTL() time.Duration {
	if s.ttl == nil {
		return DefaultCacheTTL
	}
	return s.ttl.CacheTTL()
}

// GetBySource returns the active rule whose source path equals path, or nil.
// Store failures are returned wrapped in model.ErrLookup; cache failures
// only cost a trip to the database.
func (s *Store) GetBySource(ctx context.Context, path string) (*model.RedirectRule, error) {
	if path == "" {
		return nil, nil
	}

	key := cacheNamespace + path
	hit, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		return hit.rule(), nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.Debug("redirect cache read failed", "path", path, "error", err)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		row, err := s.queries.GetActiveRedirectBySource(ctx, path)
		var entry cachedLookup
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, err
		default:
			entry = cachedLookup{Found: true, Rule: toRule(row)}
		}

		if err := s.cache.SetWithTTL(ctx, key, &entry, s.cacheTTL()); err != nil {
			s.logger.Debug("redirect cache write failed", "path", path, "error", err)
		}
		return entry, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: source %q: %w", model.ErrLookup, path, err)
	}

	entry := v.(cachedLookup)
	return entry.rule(), nil
}

func (c *cachedLookup) rule() *model.RedirectRule {
	if !c.Found {
		return nil
	}
	r := c.Rule
	return &r
}

// ListActive returns every active rule in id order.
func (s *Store) ListActive(ctx context.Context) ([]model.RedirectRule, error) {
	rows, err := s.queries.ListActiveRedirects(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list active: %w", model.ErrLookup, err)
	}
	rules := make([]model.RedirectRule, len(rows))
	for i, row := range rows {
		rules[i] = toRule(row)
	}
	return rules, nil
}

// Warm loads every active rule into the cache and returns how many were cached.
func (s *Store) Warm(ctx context.Context) (int, error) {
	rules, err := s.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	ttl := s.cacheTTL()
	for _, r := range rules {
		entry := cachedLookup{Found: true, Rule: r}
		if err := s.cache.SetWithTTL(ctx, cacheNamespace+r.SourcePath, &entry, ttl); err != nil {
			return 0, fmt.Errorf("warming %q: %w", r.SourcePath, err)
		}
	}
	return len(rules), nil
}

// Invalidate drops cached lookups for the given source paths.
func (s *Store) Invalidate(ctx context.Context, paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.cache.Delete(ctx, cacheNamespace+p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush drops every cached lookup.
func (s *Store) Flush(ctx context.Context) error {
	return s.cache.DeleteByPrefix(ctx, cacheNamespace)
}

// Subscribe registers cache invalidation for rule lifecycle events. It runs
// before any other subscriber so later handlers observe fresh lookups.
func (s *Store) Subscribe(bus *hooks.Bus) {
	bus.Subscribe(hooks.Handler{
		Name:     "redirect-cache-invalidate",
		Priority: -100,
		Fn: func(ctx context.Context, ev hooks.RuleEvent) error {
			paths := []string{ev.Rule.SourcePath}
			if ev.Previous != nil && ev.Previous.SourcePath != ev.Rule.SourcePath {
				paths = append(paths, ev.Previous.SourcePath)
			}
			return s.Invalidate(ctx, paths...)
		},
	}, hooks.RuleCreated, hooks.RuleUpdated, hooks.RuleDeleted)
}

// toRule converts a database row to the domain model.
func toRule(r store.Redirect) model.RedirectRule {
	status := model.RuleStatus(r.Status)
	if !status.IsValid() {
		status = model.StatusInactive
	}
	return model.RedirectRule{
		ID:             r.ID,
		SourcePath:     r.SourcePath,
		DestinationURL: r.DestinationURL,
		Kind:           model.ParseRedirectKind(int(r.RedirectType)),
		PreserveQuery:  r.PreserveQuery,
		Status:         status,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		ModifiedAt:     r.ModifiedAt,
	}
}
