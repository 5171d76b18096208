// Package httpserver provides the HTTP/HTTPS server for kvmesh.
//
// Routes:
//
//   - Key endpoints: /keys, /keys/{key}
//   - Health endpoints: /health, /ready, /metrics
//
// Every request passes through the middleware chain
// Recover, CORS, RequestID, RateLimit, Audit, Metrics, in that order.
package httpserver
