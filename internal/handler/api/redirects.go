// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strings"

	"github.com/olegiv/hoppr-go/internal/middleware"
	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/redirect"
)

// ListRedirects handles GET /api/redirects.
func (h *Handler) ListRedirects(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt64(r, "limit", 50)
	if err != nil {
		WriteBadRequest(w, "Invalid limit", nil)
		return
	}
	offset, err := queryInt64(r, "offset", 0)
	if err != nil || offset < 0 {
		WriteBadRequest(w, "Invalid offset", nil)
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !model.RuleStatus(status).IsValid() {
		WriteBadRequest(w, "Invalid status filter", map[string]string{"status": "must be active or inactive"})
		return
	}

	rules, total, err := h.Manager.List(r.Context(), redirect.ListFilter{
		Status: status,
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeServiceError(w, err, "list redirects")
		return
	}

	WriteSuccess(w, rules, &Meta{Total: total, Limit: limit, Offset: offset})
}

// GetRedirect handles GET /api/redirects/{id}.
func (h *Handler) GetRedirect(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	rule, err := h.Manager.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get redirect")
		return
	}
	WriteSuccess(w, rule, nil)
}

// CreateRedirect handles POST /api/redirects.
func (h *Handler) CreateRedirect(w http.ResponseWriter, r *http.Request) {
	var in redirect.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.CreatedBy == "" {
		in.CreatedBy = "api"
	}

	rule, err := h.Manager.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "create redirect")
		return
	}
	WriteCreated(w, rule)
}

// UpdateRedirect handles PUT /api/redirects/{id}.
func (h *Handler) UpdateRedirect(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	var in redirect.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	rule, err := h.Manager.Update(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, err, "update redirect")
		return
	}
	WriteSuccess(w, rule, nil)
}

// DeleteRedirect handles DELETE /api/redirects/{id}.
func (h *Handler) DeleteRedirect(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	if err := h.Manager.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "delete redirect")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleRedirect handles POST /api/redirects/{id}/toggle.
func (h *Handler) ToggleRedirect(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	rule, err := h.Manager.Toggle(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "toggle redirect")
		return
	}
	WriteSuccess(w, rule, nil)
}

// BulkRequest is the body of POST /api/redirects/bulk.
type BulkRequest struct {
	Action redirect.BulkAction `json:"action"`
	IDs    []int64             `json:"ids"`
}

// BulkResponse reports how many rules were changed.
type BulkResponse struct {
	Action   redirect.BulkAction `json:"action"`
	Affected int                 `json:"affected"`
}

// BulkRedirects handles POST /api/redirects/bulk.
func (h *Handler) BulkRedirects(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Action {
	case redirect.BulkDelete, redirect.BulkActivate, redirect.BulkDeactivate:
	default:
		WriteValidationError(w, map[string]string{"action": "must be delete, activate or deactivate"})
		return
	}
	if len(req.IDs) == 0 {
		WriteValidationError(w, map[string]string{"ids": "at least one id is required"})
		return
	}

	n, err := h.Manager.Bulk(r.Context(), req.Action, req.IDs)
	if err != nil {
		h.writeServiceError(w, err, "apply bulk action")
		return
	}
	WriteSuccess(w, BulkResponse{Action: req.Action, Affected: n}, nil)
}

// LookupResponse previews what the dispatcher would do for a path.
type LookupResponse struct {
	Path     string              `json:"path"`
	Matched  bool                `json:"matched"`
	Rule     *model.RedirectRule `json:"rule,omitempty"`
	Location string              `json:"location,omitempty"`
	Safe     bool                `json:"safe"`
	Reason   string              `json:"reason,omitempty"`
}

// Lookup handles GET /api/lookup?path=... without recording a click.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	if strings.TrimSpace(raw) == "" {
		WriteBadRequest(w, "path is required", map[string]string{"path": "required"})
		return
	}
	path, rawQuery, _ := strings.Cut(raw, "?")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	rule, err := h.Matcher.Match(r.Context(), path, rawQuery)
	if err != nil {
		h.writeServiceError(w, err, "look up redirect")
		return
	}

	resp := LookupResponse{Path: raw}
	if rule == nil {
		WriteSuccess(w, resp, nil)
		return
	}

	resp.Matched = true
	resp.Rule = rule
	resp.Location = rule.DestinationURL
	if rule.PreserveQuery {
		resp.Location = middleware.AppendQuery(resp.Location, rawQuery)
	}

	resp.Safe = true
	if h.Checker != nil {
		target, err := h.Checker.Check(r.Context(), resp.Location)
		if err != nil {
			resp.Safe = false
			resp.Reason = err.Error()
		} else {
			resp.Location = target
		}
	}
	WriteSuccess(w, resp, nil)
}
