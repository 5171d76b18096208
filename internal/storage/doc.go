// Package storage defines the storage contract for kvmesh.
//
// Backend is the capability set every storage implementation satisfies:
// Get, Upsert, Delete, Contains and ListKeys. Callers depend on Backend only,
// so the mechanism behind it can be swapped by dependency injection.
//
// Implementations:
//
//   - memory.Store: sharded concurrent map, the default
//   - BadgerBackend: Badger v3 running in in-memory mode
//
// Guarantees:
//
//   - A missing key is reported through a boolean, never as an error
//   - Upsert and Delete are atomic per key
//   - Returned StoredValues are copies owned by the caller
//   - ListKeys is consistent per shard (or per transaction), not globally
//
// The only error class is domain.ErrBackendUnavailable. The in-memory
// backend never produces it.
package storage
