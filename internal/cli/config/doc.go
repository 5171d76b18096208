// Package config holds kvmesh-cli preferences read from ~/.kvmesh/cli.yaml.
package config
