// Package service provides the request-level operations of kvmesh.
//
// KVService sits between the transports and a storage.Backend. It validates
// keys and values, maps storage absence onto domain errors (not found,
// already exists), wraps backend failures into ErrBackendUnavailable and
// records one metric per storage call.
//
// Transports (HTTP, RESP) call KVService only; they never see the backend.
package service
