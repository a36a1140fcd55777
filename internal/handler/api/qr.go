package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/hoppr-go/internal/model"
)

// QRResponse is a QR record plus the link it encodes.
type QRResponse struct {
	*model.QRCode
	URL string `json:"url"`
}

func (h *Handler) requireQR(w http.ResponseWriter) bool {
	if h.QR == nil {
		WriteError(w, http.StatusServiceUnavailable, "qr_disabled", "QR code generation is not configured", nil)
		return false
	}
	return true
}

// GetQRCode handles GET /api/redirects/{id}/qr.
func (h *Handler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok || !h.requireQR(w) {
		return
	}
	rule, err := h.Manager.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get redirect")
		return
	}
	qr, err := h.QR.Get(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		WriteNotFound(w, "QR code has not been generated")
		return
	}
	if err != nil {
		h.writeServiceError(w, err, "get qr code")
		return
	}
	WriteSuccess(w, QRResponse{QRCode: qr, URL: h.QR.PublicURL(rule.SourcePath)}, nil)
}

// RegenerateQRCode handles POST /api/redirects/{id}/qr.
func (h *Handler) RegenerateQRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok || !h.requireQR(w) {
		return
	}
	rule, err := h.Manager.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get redirect")
		return
	}
	qr, err := h.QR.Generate(r.Context(), *rule)
	if err != nil {
		h.Logger.Warn("qr generation failed", "redirect_id", id, "error", err)
		WriteError(w, http.StatusBadGateway, "qr_failed", "QR code generation failed", nil)
		return
	}
	WriteSuccess(w, QRResponse{QRCode: qr, URL: h.QR.PublicURL(rule.SourcePath)}, nil)
}

// DownloadQRCode handles GET /api/redirects/{id}/qr/{format} for png and svg.
func (h *Handler) DownloadQRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok || !h.requireQR(w) {
		return
	}
	qr, err := h.QR.Get(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		WriteNotFound(w, "QR code has not been generated")
		return
	}
	if err != nil {
		h.writeServiceError(w, err, "get qr code")
		return
	}

	var name, contentType string
	switch chi.URLParam(r, "format") {
	case "png":
		name, contentType = qr.PNGPath, "image/png"
	case "svg":
		name, contentType = qr.SVGPath, "image/svg+xml"
	default:
		WriteBadRequest(w, "format must be png or svg", nil)
		return
	}

	path, err := h.QR.Path(name)
	if err != nil {
		WriteNotFound(w, "QR file not found")
		return
	}
	if _, err := os.Stat(path); err != nil {
		WriteNotFound(w, "QR file not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}
