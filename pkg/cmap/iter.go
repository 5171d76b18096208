package cmap

// Range iterates over all key-value pairs.
//
// The callback returns false to stop iteration.
// Shards are visited in index order and each one is read-locked only while
// it is being visited, so the view is consistent per shard but not globally.
// The callback must not call back into the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, shard := range m.shards {
		shard.mu.RLock()
		for k, v := range shard.items {
			if !fn(k, v) {
				shard.mu.RUnlock()
				return
			}
		}
		shard.mu.RUnlock()
	}
}

// Keys returns a snapshot of all keys, taken shard by shard.
//
// Each shard is copied under its read lock and released before the next is
// visited. A key appears at most once; keys written to an already visited
// shard during the scan are not included.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())
	for _, shard := range m.shards {
		shard.mu.RLock()
		for k := range shard.items {
			keys = append(keys, k)
		}
		shard.mu.RUnlock()
	}
	return keys
}

// Values returns a snapshot of all values, taken shard by shard.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.Count())
	m.Range(func(_ K, value V) bool {
		values = append(values, value)
		return true
	})
	return values
}
