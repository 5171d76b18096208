package memory

import (
	"context"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/pkg/cmap"
)

// Store is the sharded in-memory backend. All methods are safe for
// concurrent use and never return an error.
type Store struct {
	entries *cmap.Map[domain.Key, domain.StoredValue]
	now     func() time.Time
}

type options struct {
	shardCount int
	clock      func() time.Time
}

// Option configures the Store.
type Option func(*options)

// WithShardCount sets the number of shards. n must be a power of two;
// other values fall back to cmap.DefaultShardCount.
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shardCount = n
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	entries := cmap.New[domain.Key, domain.StoredValue]()
	if o.shardCount > 0 {
		entries = cmap.NewWithShards[domain.Key, domain.StoredValue](o.shardCount)
	}

	return &Store{
		entries: entries,
		now:     o.clock,
	}
}

// Get returns the record for key.
func (s *Store) Get(_ context.Context, key domain.Key) (domain.StoredValue, bool, error) {
	v, ok := s.entries.Get(key)
	return v, ok, nil
}

// Upsert creates or replaces the record for key.
func (s *Store) Upsert(_ context.Context, key domain.Key, value string) (domain.StoredValue, domain.UpsertOutcome, error) {
	var outcome domain.UpsertOutcome

	stored, _ := s.entries.Compute(key, func(current domain.StoredValue, exists bool) (domain.StoredValue, bool) {
		now := s.now().UTC()
		if !exists {
			outcome = domain.OutcomeCreated
			return domain.StoredValue{Value: value, CreatedAt: now, UpdatedAt: now}, true
		}

		// Clock stepped back: keep UpdatedAt monotonic per key.
		if now.Before(current.UpdatedAt) {
			now = current.UpdatedAt
		}
		outcome = domain.OutcomeUpdated
		return domain.StoredValue{Value: value, CreatedAt: current.CreatedAt, UpdatedAt: now}, true
	})

	return stored, outcome, nil
}

// Delete removes key and returns the removed record.
func (s *Store) Delete(_ context.Context, key domain.Key) (domain.StoredValue, bool, error) {
	v, ok := s.entries.Pop(key)
	return v, ok, nil
}

// Contains reports whether key exists.
func (s *Store) Contains(_ context.Context, key domain.Key) (bool, error) {
	return s.entries.Has(key), nil
}

// ListKeys returns a per-shard snapshot of the stored keys.
func (s *Store) ListKeys(_ context.Context) ([]domain.Key, error) {
	return s.entries.Keys(), nil
}

// Count returns the number of stored keys.
func (s *Store) Count() int {
	return s.entries.Count()
}

// ShardCount returns the number of shards.
func (s *Store) ShardCount() int {
	return s.entries.ShardCount()
}
