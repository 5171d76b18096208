// Package output renders kvmesh-cli results as a table, JSON or YAML.
package output
