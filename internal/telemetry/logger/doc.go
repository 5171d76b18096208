// Package logger provides structured logging for kvmesh.
//
// It wraps log/slog behind a small Logger interface:
//
//   - logger.go: construction, output format and a process-wide level
//   - context.go: carrying loggers and request IDs through a context
//   - redact.go: masking attributes that may hold stored payloads or secrets
//
// The level is shared by every logger built with New and can be changed at
// runtime with SetLevel, which the server uses on configuration reload.
package logger
