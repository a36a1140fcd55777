// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the admin REST API: rule management, lookup preview,
// click analytics, QR codes and runtime settings.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/hoppr-go/internal/analytics"
	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/qrcode"
	"github.com/olegiv/hoppr-go/internal/redirect"
	"github.com/olegiv/hoppr-go/internal/safety"
	"github.com/olegiv/hoppr-go/internal/settings"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Deps lists the services behind the API. QR and Checker may be nil.
type Deps struct {
	Manager  *redirect.Manager
	Matcher  *redirect.Matcher
	Tracker  *analytics.Tracker
	Reporter *analytics.Reporter
	QR       *qrcode.Generator
	Settings *settings.Provider
	Checker  *safety.Checker
	Logger   *slog.Logger
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	Deps
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{Deps: deps}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/status", h.Status)

	r.Route("/redirects", func(r chi.Router) {
		r.Get("/", h.ListRedirects)
		r.Post("/", h.CreateRedirect)
		r.Post("/bulk", h.BulkRedirects)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetRedirect)
			r.Put("/", h.UpdateRedirect)
			r.Delete("/", h.DeleteRedirect)
			r.Post("/toggle", h.ToggleRedirect)
			r.Get("/qr", h.GetQRCode)
			r.Post("/qr", h.RegenerateQRCode)
			r.Get("/qr/{format}", h.DownloadQRCode)
		})
	})

	r.Get("/lookup", h.Lookup)

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/summary", h.AnalyticsSummary)
		r.Get("/daily", h.AnalyticsDaily)
		r.Get("/countries", h.AnalyticsCountries)
		r.Get("/devices", h.AnalyticsDevices)
		r.Get("/referrers", h.AnalyticsReferrers)
		r.Get("/top", h.AnalyticsTop)
		r.Get("/export", h.ExportClicks)
		r.Post("/purge", h.PurgeClicks)
		r.Post("/clicks", h.RecordClick)
	})

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total  int64 `json:"total"`
	Limit  int64 `json:"limit,omitempty"`
	Offset int64 `json:"offset,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// writeServiceError maps domain errors to responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, action string) {
	// Duplicate sources arrive both as a ValidationError and as a bare unique
	// violation; both answer 409.
	var verr *redirect.ValidationError
	switch {
	case errors.Is(err, model.ErrDuplicateSource):
		msg := "already exists"
		if errors.As(err, &verr) {
			msg = verr.Msg
		}
		WriteError(w, http.StatusConflict, "duplicate_source", "A redirect for this source path already exists",
			map[string]string{"source_path": msg})
	case errors.As(err, &verr):
		WriteValidationError(w, map[string]string{verr.Field: verr.Msg})
	case errors.Is(err, model.ErrNotFound):
		WriteNotFound(w, "Redirect not found")
	case errors.Is(err, settings.ErrInvalidSetting):
		WriteError(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), nil)
	default:
		h.Logger.Error("admin api: failed to "+action, "error", err)
		WriteInternalError(w, "Failed to "+action)
	}
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{Status: "ok", Version: "v1"}, nil)
}

// requireID parses the {id} URL parameter or writes a 400 response.
func requireID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Invalid redirect ID", nil)
		return 0, false
	}
	return id, true
}

// decodeJSON reads a bounded JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid JSON body", map[string]string{"body": err.Error()})
		return false
	}
	return true
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(r *http.Request, name string, def int64) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
