package redirect

import (
	"context"
	"errors"
	"testing"

	"github.com/olegiv/hoppr-go/internal/model"
)

type mapLookup struct {
	rules map[string]*model.RedirectRule
	keys  []string
	err   error
}

func (m *mapLookup) GetBySource(_ context.Context, path string) (*model.RedirectRule, error) {
	m.keys = append(m.keys, path)
	if m.err != nil {
		return nil, m.err
	}
	return m.rules[path], nil
}

func TestMatcher_Match(t *testing.T) {
	lookup := &mapLookup{rules: map[string]*model.RedirectRule{
		"promo":           {ID: 1, SourcePath: "promo"},
		"promo?src=email": {ID: 2, SourcePath: "promo?src=email"},
		"contact-us":      {ID: 3, SourcePath: "contact-us"},
	}}
	m := NewMatcher(lookup)

	tests := []struct {
		name     string
		path     string
		rawQuery string
		wantID   int64
	}{
		{"exact", "/promo", "", 1},
		{"query key wins", "/promo", "src=email", 2},
		{"falls back to bare path", "/promo", "src=ads", 1},
		{"case and slashes", "/Contact-Us/", "", 3},
		{"no match", "/missing", "", 0},
		{"root", "/", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := m.Match(context.Background(), tt.path, tt.rawQuery)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			var got int64
			if rule != nil {
				got = rule.ID
			}
			if got != tt.wantID {
				t.Errorf("Match(%q, %q) = rule %d, want %d", tt.path, tt.rawQuery, got, tt.wantID)
			}
		})
	}
}

func TestMatcher_SkipsBareLookupWithoutQuery(t *testing.T) {
	lookup := &mapLookup{}
	m := NewMatcher(lookup)

	if _, err := m.Match(context.Background(), "/nothing", ""); err != nil {
		t.Fatal(err)
	}
	if len(lookup.keys) != 1 {
		t.Errorf("lookups = %v, want exactly one", lookup.keys)
	}
}

func TestMatcher_PropagatesLookupError(t *testing.T) {
	boom := errors.Join(model.ErrLookup, errors.New("db down"))
	lookup := &mapLookup{err: boom}
	m := NewMatcher(lookup)

	rule, err := m.Match(context.Background(), "/promo", "a=1")
	if !errors.Is(err, model.ErrLookup) {
		t.Fatalf("err = %v, want ErrLookup", err)
	}
	if rule != nil {
		t.Error("rule should be nil on error")
	}
	if len(lookup.keys) != 1 {
		t.Errorf("bare key must not be tried after an error, lookups = %v", lookup.keys)
	}
}
