package domain

import (
	"fmt"
	"time"
)

// DefaultMaxValueBytes is the default upper bound on value size.
const DefaultMaxValueBytes = 1 << 20 // 1 MiB

// StoredValue is the record held per key.
//
// It is a plain value type: backends hand out copies, so a StoredValue held
// by a caller never changes underneath it.
type StoredValue struct {
	Value     string
	CreatedAt time.Time // set once, when the key is first created
	UpdatedAt time.Time // set on every successful write
}

// UpsertOutcome reports whether an upsert created or replaced an entry.
type UpsertOutcome int

const (
	// OutcomeCreated means the key did not exist before the write.
	OutcomeCreated UpsertOutcome = iota + 1
	// OutcomeUpdated means the key existed and its value was replaced.
	OutcomeUpdated
)

// String returns "created" or "updated".
func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Entry is a key together with its stored record.
type Entry struct {
	Key Key
	StoredValue
}

// ValidateValue checks that v is non-empty and no larger than maxBytes.
// A non-positive maxBytes uses DefaultMaxValueBytes.
func ValidateValue(v string, maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxValueBytes
	}
	if v == "" {
		return ErrInvalidValue.WithDetails("value cannot be empty")
	}
	if len(v) > maxBytes {
		return ErrInvalidValue.WithDetails(fmt.Sprintf("value exceeds maximum size of %d bytes", maxBytes))
	}
	return nil
}
