package cmap

import (
	"runtime"
	"sync"

	"github.com/spaolacci/murmur3"
)

// Shard count bounds used by DefaultShardCount.
const (
	MinShardCount = 16
	MaxShardCount = 256
)

// DefaultShardCount returns the shard count used by New: the next power
// of two at or above 4 x GOMAXPROCS, clamped to [MinShardCount, MaxShardCount].
func DefaultShardCount() int {
	n := nextPowerOfTwo(4 * runtime.GOMAXPROCS(0))
	if n < MinShardCount {
		return MinShardCount
	}
	if n > MaxShardCount {
		return MaxShardCount
	}
	return n
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Map is a concurrent-safe sharded map.
type Map[K ~string, V any] struct {
	shards    []*shard[K, V]
	shardMask uint64
}

type shard[K ~string, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a new sharded map with the default shard count.
func New[K ~string, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount())
}

// NewWithShards creates a new sharded map with the specified shard count.
// shardCount must be a power of 2; other values fall back to DefaultShardCount.
func NewWithShards[K ~string, V any](shardCount int) *Map[K, V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount()
	}

	m := &Map[K, V]{
		shards:    make([]*shard[K, V], shardCount),
		shardMask: uint64(shardCount - 1),
	}

	for i := range shardCount {
		m.shards[i] = &shard[K, V]{
			items: make(map[K]V),
		}
	}

	return m
}

// ShardIndex returns the index of the shard that owns key.
// The mapping depends only on the key and the shard count.
func (m *Map[K, V]) ShardIndex(key K) int {
	return int(murmur3.Sum64([]byte(key)) & m.shardMask)
}

func (m *Map[K, V]) getShard(key K) *shard[K, V] {
	return m.shards[m.ShardIndex(key)]
}

// Get retrieves a value by key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	shard := m.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	val, ok := shard.items[key]
	return val, ok
}

// Set stores a key-value pair.
func (m *Map[K, V]) Set(key K, value V) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.items[key] = value
}

// Delete removes a key.
func (m *Map[K, V]) Delete(key K) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.items, key)
}

// Has checks if a key exists without copying the value out.
func (m *Map[K, V]) Has(key K) bool {
	shard := m.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	_, ok := shard.items[key]
	return ok
}

// Count returns the total number of items.
func (m *Map[K, V]) Count() int {
	count := 0
	for _, shard := range m.shards {
		shard.mu.RLock()
		count += len(shard.items)
		shard.mu.RUnlock()
	}
	return count
}

// Clear removes all items.
func (m *Map[K, V]) Clear() {
	for _, shard := range m.shards {
		shard.mu.Lock()
		shard.items = make(map[K]V)
		shard.mu.Unlock()
	}
}

// GetOrSet returns the existing value for a key, or sets and returns the given value if absent.
// The boolean reports whether the value was already present.
func (m *Map[K, V]) GetOrSet(key K, value V) (V, bool) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if existing, ok := shard.items[key]; ok {
		return existing, true
	}

	shard.items[key] = value
	return value, false
}

// SetIfAbsent sets the value only if the key does not exist.
// Returns true if the value was set, false if the key already exists.
func (m *Map[K, V]) SetIfAbsent(key K, value V) bool {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, ok := shard.items[key]; ok {
		return false
	}

	shard.items[key] = value
	return true
}

// Pop removes a key and returns its value.
// Returns the value and true if the key existed, zero value and false otherwise.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	val, ok := shard.items[key]
	if ok {
		delete(shard.items, key)
	}
	return val, ok
}

// Compute atomically reads, transforms and writes the entry for key.
//
// fn runs while the owning shard's write lock is held, so every other
// operation on the same key observes either the state before or after it.
// fn receives the current value and whether it exists, and returns the new
// value plus keep; keep == false removes the key.
// Compute returns the resulting value and whether the key is present.
//
// fn must not call back into the map.
func (m *Map[K, V]) Compute(key K, fn func(current V, exists bool) (V, bool)) (V, bool) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	current, exists := shard.items[key]
	next, keep := fn(current, exists)
	if !keep {
		delete(shard.items, key)
		var zero V
		return zero, false
	}
	shard.items[key] = next
	return next, true
}

// ShardCount returns the number of shards.
func (m *Map[K, V]) ShardCount() int {
	return len(m.shards)
}

// ShardStats holds the item count of one shard.
type ShardStats struct {
	Index int
	Count int
}

// Stats returns statistics about all shards.
func (m *Map[K, V]) Stats() []ShardStats {
	stats := make([]ShardStats, len(m.shards))
	for i, shard := range m.shards {
		shard.mu.RLock()
		stats[i] = ShardStats{
			Index: i,
			Count: len(shard.items),
		}
		shard.mu.RUnlock()
	}
	return stats
}
