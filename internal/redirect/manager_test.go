package redirect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/hoppr-go/internal/hooks"
	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/testutil"
)

func newTestManager(t *testing.T) (*Manager, *Store, *[]hooks.RuleEvent) {
	t.Helper()
	s, q, _ := newTestStore(t)
	bus := hooks.NewBus(testutil.TestLoggerSilent())
	s.Subscribe(bus)

	var seen []hooks.RuleEvent
	bus.Subscribe(hooks.Handler{
		Name: "recorder",
		Fn: func(_ context.Context, ev hooks.RuleEvent) error {
			seen = append(seen, ev)
			return nil
		},
	}, hooks.RuleCreated, hooks.RuleUpdated, hooks.RuleDeleted)

	return NewManager(q, bus, testutil.TestLoggerSilent()), s, &seen
}

func TestManager_CreateAppliesDefaults(t *testing.T) {
	m, s, seen := newTestManager(t)
	ctx := context.Background()

	rule, err := m.Create(ctx, Input{
		SourcePath:     "  /Spring-Sale/ ",
		DestinationURL: "example.com/sale",
	})
	require.NoError(t, err)

	assert.Equal(t, "spring-sale", rule.SourcePath)
	assert.Equal(t, model.Permanent, rule.Kind)
	assert.Equal(t, model.StatusActive, rule.Status)
	assert.Equal(t, "api", rule.CreatedBy)
	assert.False(t, rule.CreatedAt.IsZero())

	require.Len(t, *seen, 1)
	assert.Equal(t, hooks.RuleCreated, (*seen)[0].Topic)

	got, err := s.GetBySource(ctx, "spring-sale")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rule.ID, got.ID)
}

func TestManager_CreateRejects(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, Input{SourcePath: "taken", DestinationURL: "https://example.com"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"empty source", Input{SourcePath: " / ", DestinationURL: "https://example.com"}, model.ErrInvalidURL},
		{"empty destination", Input{SourcePath: "x"}, model.ErrInvalidURL},
		{"javascript", Input{SourcePath: "x", DestinationURL: "javascript:alert(1)"}, model.ErrInvalidURL},
		{"no host", Input{SourcePath: "x", DestinationURL: "https://"}, model.ErrInvalidURL},
		{"self redirect", Input{SourcePath: "loop", DestinationURL: "https://short.example/Loop/"}, model.ErrSelfRedirect},
		{"same path on another host", Input{SourcePath: "blog", DestinationURL: "https://newsite.example/blog"}, model.ErrSelfRedirect},
		{"duplicate", Input{SourcePath: "/TAKEN", DestinationURL: "https://example.org"}, model.ErrDuplicateSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)

			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestManager_UpdateMovesSource(t *testing.T) {
	m, s, seen := newTestManager(t)
	ctx := context.Background()

	rule, err := m.Create(ctx, Input{SourcePath: "old", DestinationURL: "https://example.com"})
	require.NoError(t, err)
	_, _ = s.GetBySource(ctx, "new")

	updated, err := m.Update(ctx, rule.ID, Input{
		SourcePath:     "new",
		DestinationURL: "https://example.com/v2",
		Kind:           model.Temporary,
		PreserveQuery:  true,
		CreatedBy:      "someone-else",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.SourcePath)
	assert.Equal(t, model.Temporary, updated.Kind)
	assert.True(t, updated.PreserveQuery)
	assert.Equal(t, "api", updated.CreatedBy, "creator is not editable")

	last := (*seen)[len(*seen)-1]
	assert.Equal(t, hooks.RuleUpdated, last.Topic)
	require.NotNil(t, last.Previous)
	assert.Equal(t, "old", last.Previous.SourcePath)

	got, err := s.GetBySource(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = s.GetBySource(ctx, "new")
	require.NoError(t, err)
	require.NotNil(t, got)

	// Keeping its own source is not a duplicate.
	_, err = m.Update(ctx, rule.ID, Input{SourcePath: "new", DestinationURL: "https://example.com/v3"})
	assert.NoError(t, err)
}

func TestManager_UpdateKeepsOmittedStatusAndKind(t *testing.T) {
	m, s, _ := newTestManager(t)
	ctx := context.Background()

	rule, err := m.Create(ctx, Input{
		SourcePath:     "paused",
		DestinationURL: "https://example.com/a",
		Kind:           model.Temporary,
		Status:         model.StatusInactive,
	})
	require.NoError(t, err)

	updated, err := m.Update(ctx, rule.ID, Input{SourcePath: "paused", DestinationURL: "https://example.com/b"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInactive, updated.Status, "omitted status must not reactivate the rule")
	assert.Equal(t, model.Temporary, updated.Kind)
	assert.Equal(t, "https://example.com/b", updated.DestinationURL)

	got, err := s.GetBySource(ctx, "paused")
	require.NoError(t, err)
	assert.Nil(t, got)

	updated, err = m.Update(ctx, rule.ID, Input{
		SourcePath:     "paused",
		DestinationURL: "https://example.com/b",
		Kind:           model.Permanent,
		Status:         model.StatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, updated.Status)
	assert.Equal(t, model.Permanent, updated.Kind)
}

func TestManager_UpdateMissing(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Update(context.Background(), 999, Input{SourcePath: "a", DestinationURL: "https://example.com"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestManager_ToggleAndDelete(t *testing.T) {
	m, s, _ := newTestManager(t)
	ctx := context.Background()

	rule, err := m.Create(ctx, Input{SourcePath: "t", DestinationURL: "https://example.com"})
	require.NoError(t, err)

	toggled, err := m.Toggle(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInactive, toggled.Status)

	got, err := s.GetBySource(ctx, "t")
	require.NoError(t, err)
	assert.Nil(t, got)

	toggled, err = m.Toggle(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, toggled.Status)

	require.NoError(t, m.Delete(ctx, rule.ID))
	got, err = s.GetBySource(ctx, "t")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, m.Delete(ctx, rule.ID), model.ErrNotFound)
}

func TestManager_Bulk(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	var ids []int64
	for _, src := range []string{"b1", "b2", "b3"} {
		r, err := m.Create(ctx, Input{SourcePath: src, DestinationURL: "https://example.com/dest-" + src})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	n, err := m.Bulk(ctx, BulkDeactivate, append(ids, 12345, ids[0]))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rules, total, err := m.List(ctx, ListFilter{Status: "inactive"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rules, 3)

	n, err = m.Bulk(ctx, BulkDelete, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, total, err = m.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, err = m.Bulk(ctx, BulkAction("archive"), ids)
	assert.Error(t, err)
}
