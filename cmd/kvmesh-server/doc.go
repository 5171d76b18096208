// Command kvmesh-server runs the kvmesh key-value store.
//
// It serves the HTTP JSON API and, when enabled, a Redis protocol subset
// over the same storage backend. Configuration comes from an optional
// YAML file and KVMESH_ environment variables.
package main
