// Package memory provides the in-memory storage backend for kvmesh.
//
// Store implements storage.Backend on top of a sharded concurrent map.
// Keys are spread over a fixed number of shards chosen at construction, each
// guarded by its own read-write lock. Operations on keys in different shards
// never contend.
//
// Thread Safety:
//
// Upsert and Delete run entirely under the owning shard's write lock, so
// readers see either the state before or after a write, never a mix.
// ListKeys visits one shard at a time and holds no global lock.
package memory
