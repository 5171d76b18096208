// Package handler provides the HTTP request handlers for kvmesh.
//
//   - keys.go: key CRUD and listing
//   - health.go: liveness and readiness checks
//
// Every JSON response uses the Response envelope. Errors carry the domain
// error code both in the body and in the X-Error-Code header.
package handler
