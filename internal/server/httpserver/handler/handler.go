package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/core/service"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
)

// bodyOverhead is the room left in a request body for JSON framing and the
// key on top of the largest accepted value.
const bodyOverhead = 4 << 10

// escapeFactor bounds how much JSON escaping can grow a value: a control
// byte becomes a six-byte \u00XX sequence. The decoded value is checked
// against the real limit by the service.
const escapeFactor = 6

// Config wires the handler to its dependencies.
type Config struct {
	Service *service.KVService
	Logger  logger.Logger

	// Metrics serves GET /metrics. Nil leaves the route unregistered.
	Metrics http.Handler
}

// Handler routes requests to the key-value service.
type Handler struct {
	svc    *service.KVService
	logger logger.Logger
	mux    *http.ServeMux
}

// New creates a Handler and registers its routes.
func New(cfg Config) *Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNop()
	}
	h := &Handler{
		svc:    cfg.Service,
		logger: l,
		mux:    http.NewServeMux(),
	}
	h.registerRoutes(cfg.Metrics)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes(metrics http.Handler) {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	if metrics != nil {
		h.mux.Handle("GET /metrics", metrics)
	}

	h.mux.HandleFunc("GET /keys", h.handleListKeys)
	h.mux.HandleFunc("POST /keys", h.handleCreateKey)
	h.mux.HandleFunc("GET /keys/{key}", h.handleGetKey)
	h.mux.HandleFunc("PUT /keys/{key}", h.handlePutKey)
	h.mux.HandleFunc("DELETE /keys/{key}", h.handleDeleteKey)
}

// writeJSON writes a success response in the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.WithContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// WriteError writes an error response in the standard envelope. It is
// shared with the middlewares so that every error looks the same.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, details))
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		var details any
		if de.Details != "" {
			details = de.Details
		}
		WriteError(w, r, StatusForCode(de.Code), de.Code, de.Message, details)
		return
	}

	h.logger.WithContext(r.Context()).Error("internal error", "error", err)
	WriteError(w, r, http.StatusInternalServerError,
		domain.ErrInternalServer.Code, domain.ErrInternalServer.Message, nil)
}

// StatusForCode maps a domain error code to an HTTP status code.
func StatusForCode(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasSuffix(code, "-4000"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "KV-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
