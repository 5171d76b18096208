package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// handleListKeys handles GET /keys.
func (h *Handler) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ListKeysResponse{
		Keys:  keys,
		Total: len(keys),
	})
}

// handleCreateKey handles POST /keys.
func (h *Handler) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	entry, err := h.svc.Create(r.Context(), req.Key, req.Value)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, toEntryResponse(entry))
}

// handleGetKey handles GET /keys/{key}.
func (h *Handler) handleGetKey(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, toEntryResponse(entry))
}

// handlePutKey handles PUT /keys/{key}.
func (h *Handler) handlePutKey(w http.ResponseWriter, r *http.Request) {
	var req PutKeyRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	res, err := h.svc.Put(r.Context(), r.PathValue("key"), req.Value)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == domain.OutcomeCreated {
		status = http.StatusCreated
	}
	h.writeJSON(w, r, status, PutKeyResponse{
		EntryResponse: toEntryResponse(res.Entry),
		Outcome:       res.Outcome.String(),
	})
}

// handleDeleteKey handles DELETE /keys/{key}.
func (h *Handler) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Delete(r.Context(), r.PathValue("key"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, toEntryResponse(entry))
}

// decodeBody reads a JSON body large enough for a fully escaped value of
// the maximum size.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	limit := escapeFactor*int64(h.svc.MaxValueBytes()) + bodyOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ErrInvalidValue.WithDetails(
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return domain.ErrBadRequest.WithDetails("invalid JSON body").WithCause(err)
	}
	return nil
}
