package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/store"
	"github.com/olegiv/hoppr-go/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func setup(t *testing.T) (*slog.Logger, *store.Queries) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	q := db.Queries()
	return slog.New(NewEventLogHandler(discardHandler{}, q)), q
}

func listEvents(t *testing.T, q *store.Queries) []store.Event {
	t.Helper()
	events, err := q.ListEvents(context.Background(), "", 50)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_WarnIsStored(t *testing.T) {
	logger, q := setup(t)

	logger.Warn("redirect destination rejected", "redirect_id", 42, "destination", "http://127.0.0.1/")

	events := listEvents(t, q)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Level != model.EventLevelWarning {
		t.Errorf("level = %q", ev.Level)
	}
	if ev.Category != model.EventCategorySecurity {
		t.Errorf("category = %q", ev.Category)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(ev.Metadata), &meta); err != nil {
		t.Fatalf("metadata not JSON: %v (%s)", err, ev.Metadata)
	}
	if meta["redirect_id"] != "42" || meta["destination"] != "http://127.0.0.1/" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestEventLogHandler_InfoIsNotStored(t *testing.T) {
	logger, q := setup(t)
	logger.Info("redirect created", "redirect_id", 1)
	logger.Debug("click recorded")

	if events := listEvents(t, q); len(events) != 0 {
		t.Errorf("events = %d, want 0", len(events))
	}
}

func TestEventLogHandler_ErrorAndExplicitCategory(t *testing.T) {
	logger, q := setup(t)
	logger.Error("disk full", "category", model.EventCategoryAnalytics, "path", "/var/lib/hoppr")

	events := listEvents(t, q)
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Level != model.EventLevelError || events[0].Category != model.EventCategoryAnalytics {
		t.Errorf("event = %+v", events[0])
	}
}

func TestEventLogHandler_WithAttrsAndGroup(t *testing.T) {
	logger, q := setup(t)
	logger.With("component", "dispatcher").WithGroup("req").Warn("redirect lookup failed", "path", "promo")

	events := listEvents(t, q)
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	var meta map[string]string
	_ = json.Unmarshal([]byte(events[0].Metadata), &meta)
	if meta["component"] != "dispatcher" || meta["req.path"] != "promo" {
		t.Errorf("metadata = %v", meta)
	}
	if events[0].Category != model.EventCategoryRedirect {
		t.Errorf("category = %q", events[0].Category)
	}
}

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"click tracking failed", model.EventCategoryAnalytics},
		{"admin token rejected", model.EventCategorySecurity},
		{"qr generation failed", model.EventCategoryRedirect},
		{"redis cache unavailable", model.EventCategoryCache},
		{"stored settings out of range, using defaults", model.EventCategoryConfig},
		{"shutting down", model.EventCategorySystem},
	}
	for _, tt := range tests {
		if got := extractCategory(tt.msg, nil); got != tt.want {
			t.Errorf("extractCategory(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}
