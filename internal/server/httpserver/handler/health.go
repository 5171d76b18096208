package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: buildinfo.Version,
	})
}

// handleReady handles GET /ready. It fails with 503 while the storage
// backend cannot serve requests.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	count, err := h.svc.Count(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ready",
		Time:   time.Now().UTC().Format(time.RFC3339),
		Keys:   &count,
	})
}
