package handler

import (
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// CreateKeyRequest is the request body for POST /keys.
type CreateKeyRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PutKeyRequest is the request body for PUT /keys/{key}.
type PutKeyRequest struct {
	Value string `json:"value"`
}

// Metadata holds entry timestamps.
type Metadata struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	Key      string   `json:"key"`
	Value    string   `json:"value"`
	Metadata Metadata `json:"metadata"`
}

// PutKeyResponse is the response body for PUT /keys/{key}.
type PutKeyResponse struct {
	EntryResponse
	Outcome string `json:"outcome"`
}

// ListKeysResponse is the response body for GET /keys.
type ListKeysResponse struct {
	Keys  []string `json:"keys"`
	Total int      `json:"total"`
}

// HealthResponse is the response body for GET /health and GET /ready.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Version string `json:"version,omitempty"`
	Keys    *int   `json:"keys,omitempty"`
}

func toEntryResponse(e *domain.Entry) EntryResponse {
	return EntryResponse{
		Key:   e.Key.String(),
		Value: e.Value,
		Metadata: Metadata{
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		},
	}
}
