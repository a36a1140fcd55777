// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package hooks is the in-process event bus for redirect rule lifecycle events.
//
// Subscribers registered by the application:
//   - redirect.Store drops cached lookups for the old and new source paths (priority -100).
//   - qrcode.Generator regenerates or removes QR images (priority 0).
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/olegiv/hoppr-go/internal/model"
)

// Topic names a lifecycle event.
type Topic string

// Rule lifecycle topics.
const (
	RuleCreated Topic = "redirect.created"
	RuleUpdated Topic = "redirect.updated"
	RuleDeleted Topic = "redirect.deleted"
)

// RuleEvent is the payload for rule lifecycle topics.
// Previous is set on updates and deletes.
type RuleEvent struct {
	Topic    Topic
	Rule     model.RedirectRule
	Previous *model.RedirectRule
}

// HandlerFunc receives a published event.
type HandlerFunc func(ctx context.Context, ev RuleEvent) error

// Handler wraps a HandlerFunc with metadata.
type Handler struct {
	Name     string      // Name of the handler for debugging
	Priority int         // Lower priority runs first (default: 0)
	Fn       HandlerFunc // The actual handler function
}

// Bus dispatches rule events to subscribers synchronously, in priority order.
type Bus struct {
	handlers map[Topic][]Handler
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
		logger:   logger,
	}
}

// Subscribe registers h for each of the given topics.
func (b *Bus) Subscribe(h Handler, topics ...Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, topic := range topics {
		handlers := append(b.handlers[topic], h)
		sort.SliceStable(handlers, func(i, j int) bool {
			return handlers[i].Priority < handlers[j].Priority
		})
		b.handlers[topic] = handlers

		b.logger.Debug("hook registered", "topic", topic, "handler", h.Name, "priority", h.Priority)
	}
}

// Publish delivers ev to every subscriber of ev.Topic. A failing handler does
// not stop later handlers; all failures are logged and returned joined.
func (b *Bus) Publish(ctx context.Context, ev RuleEvent) error {
	b.mu.RLock()
	handlers := b.handlers[ev.Topic]
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h.Fn(ctx, ev); err != nil {
			b.logger.Error("hook handler error",
				"topic", ev.Topic,
				"handler", h.Name,
				"redirect_id", ev.Rule.ID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("hook %s handler %s: %w", ev.Topic, h.Name, err))
		}
	}
	return errors.Join(errs...)
}

// HandlerCount returns the number of handlers registered for a topic.
func (b *Bus) HandlerCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}
