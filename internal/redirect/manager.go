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

	"github.com/samber/lo"

	"github.com/olegiv/hoppr-go/internal/hooks"
	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/store"
)

// timeNow is overridable in tests.
var timeNow = time.Now

// BulkAction is an operation applied to many rules at once.
type BulkAction string

// Bulk actions.
const (
	BulkDelete     BulkAction = "delete"
	BulkActivate   BulkAction = "activate"
	BulkDeactivate BulkAction = "deactivate"
)

// ListFilter selects rules for the admin listing.
type ListFilter struct {
	Status string
	Search string
	Limit  int64
	Offset int64
}

// Manager creates, edits and removes rules and announces every change on the bus.
type Manager struct {
	queries *store.Queries
	bus     *hooks.Bus
	logger  *slog.Logger
}

// NewManager creates a Manager.
func NewManager(queries *store.Queries, bus *hooks.Bus, logger *slog.Logger) *Manager {
	return &Manager{queries: queries, bus: bus, logger: logger}
}

// Get returns a rule by id or model.ErrNotFound.
func (m *Manager) Get(ctx context.Context, id int64) (*model.RedirectRule, error) {
	row, err := m.queries.GetRedirect(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("redirect %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting redirect %d: %w", id, err)
	}
	r := toRule(row)
	return &r, nil
}

// List returns a page of rules and the total matching count.
func (m *Manager) List(ctx context.Context, f ListFilter) ([]model.RedirectRule, int64, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	rows, err := m.queries.ListRedirects(ctx, store.ListRedirectsParams{
		Status: f.Status,
		Search: f.Search,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing redirects: %w", err)
	}
	total, err := m.queries.CountRedirects(ctx, f.Status, f.Search)
	if err != nil {
		return nil, 0, fmt.Errorf("counting redirects: %w", err)
	}
	return lo.Map(rows, func(r store.Redirect, _ int) model.RedirectRule { return toRule(r) }), total, nil
}

// Create validates and stores a new rule.
func (m *Manager) Create(ctx context.Context, in Input) (*model.RedirectRule, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	if err := m.ensureSourceFree(ctx, in.SourcePath, 0); err != nil {
		return nil, err
	}

	now := timeNow().UTC()
	id, err := m.queries.CreateRedirect(ctx, store.CreateRedirectParams{
		SourcePath:     in.SourcePath,
		DestinationURL: in.DestinationURL,
		RedirectType:   int64(in.Kind),
		PreserveQuery:  in.PreserveQuery,
		Status:         string(in.Status),
		CreatedBy:      in.CreatedBy,
		CreatedAt:      now,
		ModifiedAt:     now,
	})
	if store.IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %q", model.ErrDuplicateSource, in.SourcePath)
	}
	if err != nil {
		return nil, fmt.Errorf("creating redirect: %w", err)
	}

	rule, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.logger.Info("redirect created", "redirect_id", rule.ID, "source", rule.SourcePath)
	m.publish(ctx, hooks.RuleEvent{Topic: hooks.RuleCreated, Rule: *rule})
	return rule, nil
}

// Update validates and rewrites an existing rule. CreatedBy is not editable.
func (m *Manager) Update(ctx context.Context, id int64, in Input) (*model.RedirectRule, error) {
	prev, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Omitted fields keep their stored values.
	if !in.Kind.IsValid() {
		in.Kind = prev.Kind
	}
	if !in.Status.IsValid() {
		in.Status = prev.Status
	}

	in, err = normalizeInput(in)
	if err != nil {
		return nil, err
	}
	if err := m.ensureSourceFree(ctx, in.SourcePath, id); err != nil {
		return nil, err
	}

	err = m.queries.UpdateRedirect(ctx, store.UpdateRedirectParams{
		ID:             id,
		SourcePath:     in.SourcePath,
		DestinationURL: in.DestinationURL,
		RedirectType:   int64(in.Kind),
		PreserveQuery:  in.PreserveQuery,
		Status:         string(in.Status),
		ModifiedAt:     timeNow().UTC(),
	})
	if store.IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %q", model.ErrDuplicateSource, in.SourcePath)
	}
	if err != nil {
		return nil, fmt.Errorf("updating redirect %d: %w", id, err)
	}

	rule, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.logger.Info("redirect updated", "redirect_id", id, "source", rule.SourcePath)
	m.publish(ctx, hooks.RuleEvent{Topic: hooks.RuleUpdated, Rule: *rule, Previous: prev})
	return rule, nil
}

// SetStatus activates or deactivates a rule.
func (m *Manager) SetStatus(ctx context.Context, id int64, status model.RuleStatus) (*model.RedirectRule, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Field: "status", Err: errInvalidStatus, Msg: fmt.Sprintf("unknown status %q", status)}
	}
	prev, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if prev.Status == status {
		return prev, nil
	}

	if err := m.queries.UpdateRedirectStatus(ctx, id, string(status), timeNow().UTC()); err != nil {
		return nil, fmt.Errorf("updating redirect %d status: %w", id, err)
	}

	rule := *prev
	rule.Status = status
	m.publish(ctx, hooks.RuleEvent{Topic: hooks.RuleUpdated, Rule: rule, Previous: prev})
	return m.Get(ctx, id)
}

// Toggle flips a rule between active and inactive.
func (m *Manager) Toggle(ctx context.Context, id int64) (*model.RedirectRule, error) {
	prev, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := model.StatusActive
	if prev.IsActive() {
		next = model.StatusInactive
	}
	return m.SetStatus(ctx, id, next)
}

// Delete removes a rule together with its clicks and QR record.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	prev, err := m.Get(ctx, id)
	if err != nil {
		return err
	}

	n, err := m.queries.DeleteRedirect(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting redirect %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("redirect %d: %w", id, model.ErrNotFound)
	}

	m.logger.Info("redirect deleted", "redirect_id", id, "source", prev.SourcePath)
	m.publish(ctx, hooks.RuleEvent{Topic: hooks.RuleDeleted, Rule: *prev, Previous: prev})
	return nil
}

// Bulk applies action to every id and returns how many rules were changed.
// Missing ids are skipped; other failures stop the run.
func (m *Manager) Bulk(ctx context.Context, action BulkAction, ids []int64) (int, error) {
	changed := 0
	for _, id := range lo.Uniq(ids) {
		var err error
		switch action {
		case BulkDelete:
			err = m.Delete(ctx, id)
		case BulkActivate:
			_, err = m.SetStatus(ctx, id, model.StatusActive)
		case BulkDeactivate:
			_, err = m.SetStatus(ctx, id, model.StatusInactive)
		default:
			return 0, fmt.Errorf("unknown bulk action %q", action)
		}
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// ensureSourceFree fails with model.ErrDuplicateSource when another rule
// (active or not) already owns source. selfID is excluded.
func (m *Manager) ensureSourceFree(ctx context.Context, source string, selfID int64) error {
	existing, err := m.queries.GetRedirectBySource(ctx, source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking source %q: %w", source, err)
	}
	if existing.ID == selfID {
		return nil
	}
	return &ValidationError{Field: "source_path", Err: model.ErrDuplicateSource, Msg: fmt.Sprintf("source path %q is already used by redirect %d", source, existing.ID)}
}

// publish announces a change. Subscriber failures are logged by the bus and
// never undo the committed change.
func (m *Manager) publish(ctx context.Context, ev hooks.RuleEvent) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(ctx, ev)
}
