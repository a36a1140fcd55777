package api

import (
	"net/http"
	"slices"
)

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, h.Settings.Get(), nil)
}

// UpdateSettings handles PUT /api/settings. Fields left out of the body keep
// their current values.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	next := h.Settings.Get()
	if !decodeJSON(w, r, &next) {
		return
	}

	prev := h.Settings.Get()
	saved, err := h.Settings.Update(r.Context(), next)
	if err != nil {
		h.writeServiceError(w, err, "update settings")
		return
	}

	// Cached resolutions were accepted under the old policy.
	if h.Checker != nil && (prev.SecurityChecksEnabled != saved.SecurityChecksEnabled ||
		!slices.Equal(prev.AllowedDomains, saved.AllowedDomains)) {
		h.Checker.Purge()
	}

	WriteSuccess(w, saved, nil)
}
