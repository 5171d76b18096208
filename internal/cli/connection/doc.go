// Package connection provides the HTTP client kvmesh-cli uses to talk to
// a kvmesh server.
package connection
