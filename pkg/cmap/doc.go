// Package cmap provides a concurrent map implementation for kvmesh.
//
// This package implements a sharded concurrent map optimized for
// many concurrent readers and writers over string-like keys:
//
//   - Sharding: power-of-two shard count, sized from GOMAXPROCS by default
//   - Deterministic placement: murmur3 hash of the key selects the shard
//   - Fine-grained Locking: per-shard RWMutex, no global lock
//   - Atomic read-modify-write: Compute runs under the owning shard lock
//   - Iteration: shard-by-shard snapshots, never a lock across all shards
//
// Usage:
//
//	m := cmap.NewWithShards[string, int](32)
//	m.Set("key", 1)
//	val, ok := m.Get("key")
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Has) use RLock,
// write operations (Set, Delete, Pop, Compute) use Lock.
package cmap
