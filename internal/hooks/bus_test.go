// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package hooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/olegiv/hoppr-go/internal/model"
)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBus_PriorityOrder(t *testing.T) {
	bus := newTestBus()
	var order []string

	record := func(name string) HandlerFunc {
		return func(context.Context, RuleEvent) error {
			order = append(order, name)
			return nil
		}
	}

	bus.Subscribe(Handler{Name: "qr", Priority: 0, Fn: record("qr")}, RuleCreated, RuleUpdated)
	bus.Subscribe(Handler{Name: "cache", Priority: -100, Fn: record("cache")}, RuleCreated, RuleUpdated, RuleDeleted)

	if err := bus.Publish(context.Background(), RuleEvent{Topic: RuleCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(order) != 2 || order[0] != "cache" || order[1] != "qr" {
		t.Errorf("order = %v, want [cache qr]", order)
	}

	if n := bus.HandlerCount(RuleDeleted); n != 1 {
		t.Errorf("HandlerCount(deleted) = %d, want 1", n)
	}
}

func TestBus_ErrorDoesNotStopLaterHandlers(t *testing.T) {
	bus := newTestBus()
	boom := errors.New("boom")
	called := false

	bus.Subscribe(Handler{Name: "failing", Priority: -1, Fn: func(context.Context, RuleEvent) error {
		return boom
	}}, RuleDeleted)
	bus.Subscribe(Handler{Name: "after", Fn: func(_ context.Context, ev RuleEvent) error {
		called = true
		if ev.Rule.ID != 42 {
			t.Errorf("Rule.ID = %d, want 42", ev.Rule.ID)
		}
		return nil
	}}, RuleDeleted)

	err := bus.Publish(context.Background(), RuleEvent{Topic: RuleDeleted, Rule: model.RedirectRule{ID: 42}})
	if !errors.Is(err, boom) {
		t.Errorf("Publish error = %v, want wrapped boom", err)
	}
	if !called {
		t.Error("handler after the failing one was not called")
	}
}

func TestBus_NoHandlers(t *testing.T) {
	if err := newTestBus().Publish(context.Background(), RuleEvent{Topic: RuleUpdated}); err != nil {
		t.Errorf("Publish without handlers: %v", err)
	}
}
