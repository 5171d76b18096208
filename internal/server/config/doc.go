// Package config provides server configuration for kvmesh.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation applied after loading
//
// Configuration is loaded via internal/infra/confloader from a YAML file and
// KVMESH_ environment variables, on top of Default().
package config
