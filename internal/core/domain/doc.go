// Package domain defines the core domain models for kvmesh.
//
// This package contains the types shared by every storage backend and
// transport:
//
//   - Key: validated, immutable identifier of an entry
//   - StoredValue: payload plus created_at/updated_at metadata
//   - UpsertOutcome: Created/Updated discriminator returned by writes
//   - Entry: a key together with its stored value
//   - DomainError: structured errors with stable codes
//
// Domain models are pure data structures with validation logic.
// They have no dependencies on infrastructure or external services.
package domain
