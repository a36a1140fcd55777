package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/hoppr-go/internal/analytics"
	"github.com/olegiv/hoppr-go/internal/util"
)

const (
	defaultRangeDays = 30
	dateLayout       = "2006-01-02"
)

// timeNow is overridable in tests.
var timeNow = time.Now

// parseTime accepts a date or an RFC 3339 timestamp.
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD or RFC 3339, got %q", v)
	}
	return t.UTC(), nil
}

// parseRange reads from, to and redirect_id. Missing bounds default to the
// last 30 days; a bare "to" date is inclusive.
func parseRange(r *http.Request) (analytics.Range, map[string]string) {
	q := r.URL.Query()
	rng := analytics.LastDays(defaultRangeDays, timeNow())
	errs := map[string]string{}

	if v := q.Get("from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			errs["from"] = err.Error()
		} else {
			rng.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			errs["to"] = err.Error()
		} else {
			if !strings.Contains(v, "T") {
				t = t.AddDate(0, 0, 1)
			}
			rng.To = t
		}
	}
	if !rng.To.After(rng.From) {
		errs["to"] = "must be after from"
	}

	id, err := queryInt64(r, "redirect_id", 0)
	if err != nil || id < 0 {
		errs["redirect_id"] = "must be a positive integer"
	}
	rng.RedirectID = id

	if len(errs) > 0 {
		return rng, errs
	}
	return rng, nil
}

// reportParams parses the range and limit shared by the report endpoints.
func reportParams(w http.ResponseWriter, r *http.Request) (analytics.Range, int64, bool) {
	rng, errs := parseRange(r)
	limit, err := queryInt64(r, "limit", 10)
	if err != nil {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["limit"] = "must be an integer"
	}
	if errs != nil {
		WriteBadRequest(w, "Invalid query parameters", errs)
		return rng, 0, false
	}
	return rng, limit, true
}

// AnalyticsSummary handles GET /api/analytics/summary.
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	rng, _, ok := reportParams(w, r)
	if !ok {
		return
	}
	s, err := h.Reporter.Summary(r.Context(), rng)
	if err != nil {
		h.writeServiceError(w, err, "load summary")
		return
	}
	WriteSuccess(w, s, nil)
}

// AnalyticsDaily handles GET /api/analytics/daily.
func (h *Handler) AnalyticsDaily(w http.ResponseWriter, r *http.Request) {
	rng, _, ok := reportParams(w, r)
	if !ok {
		return
	}
	days, err := h.Reporter.DailyClicks(r.Context(), rng)
	if err != nil {
		h.writeServiceError(w, err, "load daily clicks")
		return
	}
	WriteSuccess(w, days, nil)
}

// AnalyticsCountries handles GET /api/analytics/countries.
func (h *Handler) AnalyticsCountries(w http.ResponseWriter, r *http.Request) {
	rng, limit, ok := reportParams(w, r)
	if !ok {
		return
	}
	rows, err := h.Reporter.ByCountry(r.Context(), rng, limit)
	if err != nil {
		h.writeServiceError(w, err, "load countries")
		return
	}
	WriteSuccess(w, rows, nil)
}

// AnalyticsDevices handles GET /api/analytics/devices.
func (h *Handler) AnalyticsDevices(w http.ResponseWriter, r *http.Request) {
	rng, _, ok := reportParams(w, r)
	if !ok {
		return
	}
	rows, err := h.Reporter.ByDevice(r.Context(), rng)
	if err != nil {
		h.writeServiceError(w, err, "load devices")
		return
	}
	WriteSuccess(w, rows, nil)
}

// AnalyticsReferrers handles GET /api/analytics/referrers.
func (h *Handler) AnalyticsReferrers(w http.ResponseWriter, r *http.Request) {
	rng, limit, ok := reportParams(w, r)
	if !ok {
		return
	}
	rows, err := h.Reporter.TopReferrers(r.Context(), rng, limit)
	if err != nil {
		h.writeServiceError(w, err, "load referrers")
		return
	}
	WriteSuccess(w, rows, nil)
}

// AnalyticsTop handles GET /api/analytics/top.
func (h *Handler) AnalyticsTop(w http.ResponseWriter, r *http.Request) {
	rng, limit, ok := reportParams(w, r)
	if !ok {
		return
	}
	rows, err := h.Reporter.TopRedirects(r.Context(), rng, limit)
	if err != nil {
		h.writeServiceError(w, err, "load top redirects")
		return
	}
	WriteSuccess(w, rows, nil)
}

// ExportClicks handles GET /api/analytics/export and downloads the matching
// clicks as CSV.
func (h *Handler) ExportClicks(w http.ResponseWriter, r *http.Request) {
	rng, errs := parseRange(r)
	if errs != nil {
		WriteBadRequest(w, "Invalid query parameters", errs)
		return
	}

	var buf bytes.Buffer
	n, err := h.Reporter.ExportCSV(r.Context(), rng, &buf)
	if err != nil {
		h.writeServiceError(w, err, "export clicks")
		return
	}

	filename := fmt.Sprintf("hoppr-analytics-%s.csv", timeNow().UTC().Format(dateLayout))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())

	h.Logger.Info("clicks exported", "count", n, "redirect_id", rng.RedirectID)
}

// PurgeRequest selects clicks to delete: either a cutoff or an age in days.
type PurgeRequest struct {
	OlderThan     string `json:"older_than,omitempty"`
	OlderThanDays int    `json:"older_than_days,omitempty"`
}

// PurgeResponse reports the deleted row count.
type PurgeResponse struct {
	Cutoff  time.Time `json:"cutoff"`
	Deleted int64     `json:"deleted"`
}

// PurgeClicks handles POST /api/analytics/purge.
func (h *Handler) PurgeClicks(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var cutoff time.Time
	switch {
	case req.OlderThan != "" && req.OlderThanDays != 0:
		WriteValidationError(w, map[string]string{"older_than": "use either older_than or older_than_days"})
		return
	case req.OlderThan != "":
		t, err := parseTime(req.OlderThan)
		if err != nil {
			WriteValidationError(w, map[string]string{"older_than": err.Error()})
			return
		}
		cutoff = t
	case req.OlderThanDays > 0:
		cutoff = timeNow().UTC().AddDate(0, 0, -req.OlderThanDays)
	default:
		WriteValidationError(w, map[string]string{"older_than": "required"})
		return
	}

	n, err := h.Tracker.Purge(r.Context(), cutoff)
	if err != nil {
		h.writeServiceError(w, err, "purge clicks")
		return
	}
	WriteSuccess(w, PurgeResponse{Cutoff: cutoff, Deleted: n}, nil)
}

// RecordClickRequest is the body of the diagnostic click endpoint. Missing
// client details fall back to the caller's own request.
type RecordClickRequest struct {
	RedirectID  int64  `json:"redirect_id"`
	ClientIP    string `json:"client_ip,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// RecordClick handles POST /api/analytics/clicks.
func (h *Handler) RecordClick(w http.ResponseWriter, r *http.Request) {
	var req RecordClickRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RedirectID <= 0 {
		WriteValidationError(w, map[string]string{"redirect_id": "required"})
		return
	}
	if _, err := h.Manager.Get(r.Context(), req.RedirectID); err != nil {
		h.writeServiceError(w, err, "record click")
		return
	}

	in := analytics.ClickInput{
		RedirectID:  req.RedirectID,
		ClientIP:    req.ClientIP,
		UserAgent:   req.UserAgent,
		Referrer:    req.Referrer,
		CountryCode: req.CountryCode,
	}
	if in.ClientIP == "" {
		in.ClientIP = util.ClientIP(r)
	}
	if in.UserAgent == "" {
		in.UserAgent = r.UserAgent()
	}

	ev, err := h.Tracker.Record(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "record click")
		return
	}
	WriteCreated(w, ev)
}
