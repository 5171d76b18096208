// Package confloader loads configuration with koanf.
//
// Sources, lowest to highest priority:
//
//  1. Default values already present in the target struct
//  2. A YAML configuration file
//  3. Environment variables (KVMESH_ prefix)
//
// Environment variable names use a double underscore between levels so
// that keys containing underscores survive: KVMESH_STORAGE__SHARD_COUNT
// maps to storage.shard_count.
//
// Watcher reports changes to configuration files through fsnotify.
package confloader
