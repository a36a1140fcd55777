// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/hoppr-go/internal/analytics"
	"github.com/olegiv/hoppr-go/internal/geoip"
	"github.com/olegiv/hoppr-go/internal/metrics"
	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/util"
)

// Response header values for emitted redirects.
const (
	permanentCacheControl = "public, max-age=31536000"
	temporaryCacheControl = "no-cache, no-store, must-revalidate"
	expiredDate           = "Thu, 01 Jan 1970 00:00:00 GMT"
	permanentLifetime     = 365 * 24 * time.Hour
)

// DefaultSkipPrefixes are path prefixes the dispatcher never handles.
var DefaultSkipPrefixes = []string{"/api", "/health", "/metrics"}

// RuleMatcher finds the rule for a request path.
type RuleMatcher interface {
	Match(ctx context.Context, path, rawQuery string) (*model.RedirectRule, error)
}

// ClickRecorder stores a click.
type ClickRecorder interface {
	Record(ctx context.Context, in analytics.ClickInput) (*model.ClickEvent, error)
}

// DestinationChecker vets a destination and returns the URL to emit.
type DestinationChecker interface {
	Check(ctx context.Context, dest string) (string, error)
}

// DispatcherConfig wires the dispatcher's collaborators. Tracker, Country
// and Metrics are optional.
type DispatcherConfig struct {
	Matcher      RuleMatcher
	Tracker      ClickRecorder
	Checker      DestinationChecker
	Country      geoip.CountryLookup
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	SkipPrefixes []string
	TrackTimeout time.Duration
}

// Dispatcher answers matched requests with a redirect and passes everything
// else to the next handler.
type Dispatcher struct {
	cfg DispatcherConfig
	now func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.SkipPrefixes == nil {
		cfg.SkipPrefixes = DefaultSkipPrefixes
	}
	if cfg.TrackTimeout <= 0 {
		cfg.TrackTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{cfg: cfg, now: time.Now}
}

// Handler returns the middleware handler function.
func (d *Dispatcher) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.handles(r) {
			next.ServeHTTP(w, r)
			return
		}

		start := d.now()
		rule, err := d.cfg.Matcher.Match(r.Context(), r.URL.Path, r.URL.RawQuery)
		if err != nil {
			d.cfg.Logger.Warn("redirect lookup failed", "path", r.URL.Path, "error", err)
			d.cfg.Metrics.Dispatch(metrics.OutcomeLookupError)
			next.ServeHTTP(w, r)
			return
		}
		if rule == nil {
			d.cfg.Metrics.Dispatch(metrics.OutcomeNoMatch)
			next.ServeHTTP(w, r)
			return
		}

		d.track(r, rule)

		dest := rule.DestinationURL
		if rule.PreserveQuery {
			dest = AppendQuery(dest, r.URL.RawQuery)
		}

		target, err := d.cfg.Checker.Check(r.Context(), dest)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, context.Canceled) {
				level = slog.LevelDebug
			}
			d.cfg.Logger.Log(r.Context(), level, "redirect destination rejected",
				"redirect_id", rule.ID,
				"destination", dest,
				"error", err,
			)
			d.cfg.Metrics.Dispatch(metrics.OutcomeRejected)
			next.ServeHTTP(w, r)
			return
		}

		d.emit(w, rule.Kind, target)
		d.cfg.Metrics.Dispatch(metrics.OutcomeRedirected)
		d.cfg.Metrics.ObserveDispatch(d.now().Sub(start))

		d.cfg.Logger.Debug("redirect matched",
			"source", rule.SourcePath,
			"target", target,
			"status", rule.Kind.StatusCode(),
		)
	})
}

// handles reports whether r is a candidate for redirection.
func (d *Dispatcher) handles(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	path := r.URL.Path
	for _, p := range d.cfg.SkipPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return false
		}
	}
	return true
}

// track records the hit. The write survives the client going away and its
// failure never affects the response.
func (d *Dispatcher) track(r *http.Request, rule *model.RedirectRule) {
	if d.cfg.Tracker == nil {
		return
	}

	ip := util.ClientIP(r)
	in := analytics.ClickInput{
		RedirectID:  rule.ID,
		ClientIP:    ip,
		UserAgent:   r.UserAgent(),
		Referrer:    r.Referer(),
		CountryCode: geoip.CountryFromRequest(r, ip, d.cfg.Country),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), d.cfg.TrackTimeout)
	defer cancel()

	if _, err := d.cfg.Tracker.Record(ctx, in); err != nil {
		d.cfg.Logger.Warn("click tracking failed", "redirect_id", rule.ID, "error", err)
		d.cfg.Metrics.TrackFailed()
	}
}

// emit writes the redirect status line and headers with an empty body.
func (d *Dispatcher) emit(w http.ResponseWriter, kind model.RedirectKind, target string) {
	h := w.Header()
	h.Set("Location", target)
	if kind == model.Temporary {
		h.Set("Cache-Control", temporaryCacheControl)
		h.Set("Expires", expiredDate)
	} else {
		h.Set("Cache-Control", permanentCacheControl)
		h.Set("Expires", d.now().Add(permanentLifetime).UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(kind.StatusCode())
}

// AppendQuery adds rawQuery to dest with "?" or "&", ahead of any fragment.
func AppendQuery(dest, rawQuery string) string {
	if rawQuery == "" {
		return dest
	}
	fragment := ""
	if i := strings.IndexByte(dest, '#'); i >= 0 {
		dest, fragment = dest[:i], dest[i:]
	}
	sep := "?"
	if strings.Contains(dest, "?") {
		sep = "&"
	}
	return dest + sep + rawQuery + fragment
}
