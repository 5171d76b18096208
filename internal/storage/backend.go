package storage

import (
	"context"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// Backend is the storage contract.
type Backend interface {
	// Get returns the current record for key. ok is false if key does not exist.
	Get(ctx context.Context, key domain.Key) (value domain.StoredValue, ok bool, err error)

	// Upsert atomically creates or replaces the entry for key and returns the
	// record as it is after the write.
	//
	// On creation CreatedAt and UpdatedAt are both set to now and the outcome
	// is OutcomeCreated. On replacement CreatedAt is preserved, UpdatedAt is
	// set to now and the outcome is OutcomeUpdated.
	Upsert(ctx context.Context, key domain.Key, value string) (domain.StoredValue, domain.UpsertOutcome, error)

	// Delete atomically removes key and returns the removed record.
	// ok is false if key did not exist; nothing changes in that case.
	Delete(ctx context.Context, key domain.Key) (removed domain.StoredValue, ok bool, err error)

	// Contains reports whether key exists without materializing its value.
	Contains(ctx context.Context, key domain.Key) (bool, error)

	// ListKeys returns the keys present at call time, in no particular order.
	// The result never contains duplicates and is non-nil.
	ListKeys(ctx context.Context) ([]domain.Key, error)
}

// Counter is implemented by backends that can report their size cheaply.
type Counter interface {
	Count() int
}
