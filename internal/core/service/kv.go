package service

import (
	"context"
	"errors"
	"sort"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/storage"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// Storage operation names used in metrics.
const (
	OpGet      = "get"
	OpUpsert   = "upsert"
	OpDelete   = "delete"
	OpContains = "contains"
	OpList     = "list"
)

// readyProbeKey is looked up by Ready. It never needs to exist.
const readyProbeKey domain.Key = "kvmesh-ready-probe"

// Recorder receives one observation per storage call.
type Recorder interface {
	ObserveStoreOp(op, result string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStoreOp(string, string) {}

// PutResult is the outcome of an unconditional write.
type PutResult struct {
	Entry   *domain.Entry
	Outcome domain.UpsertOutcome
}

// KVService implements the external key-value operations.
type KVService struct {
	backend       storage.Backend
	logger        logger.Logger
	recorder      Recorder
	maxValueBytes int
}

// Option configures a KVService.
type Option func(*KVService)

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *KVService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets where storage metrics are recorded.
func WithRecorder(r Recorder) Option {
	return func(s *KVService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithMaxValueBytes bounds the size of accepted values.
func WithMaxValueBytes(n int) Option {
	return func(s *KVService) {
		if n > 0 {
			s.maxValueBytes = n
		}
	}
}

// NewKVService creates a KVService on top of backend.
func NewKVService(backend storage.Backend, opts ...Option) *KVService {
	s := &KVService{
		backend:       backend,
		logger:        logger.NewNop(),
		recorder:      nopRecorder{},
		maxValueBytes: domain.DefaultMaxValueBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxValueBytes returns the configured value size limit.
func (s *KVService) MaxValueBytes() int {
	return s.maxValueBytes
}

// Get returns the entry stored under key.
func (s *KVService) Get(ctx context.Context, key string) (*domain.Entry, error) {
	k, err := domain.ParseKey(key)
	if err != nil {
		return nil, err
	}

	sv, ok, err := s.backend.Get(ctx, k)
	if err != nil {
		return nil, s.backendFailure(ctx, OpGet, k, err)
	}
	if !ok {
		s.recorder.ObserveStoreOp(OpGet, metric.ResultNotFound)
		return nil, domain.ErrKeyNotFound.WithDetails("key: " + key)
	}

	s.recorder.ObserveStoreOp(OpGet, metric.ResultOK)
	return &domain.Entry{Key: k, StoredValue: sv}, nil
}

// Create stores value under key only if key does not exist yet.
//
// The existence check and the write are two separate backend calls. Two
// concurrent creates of the same key may both succeed; the later one wins.
func (s *KVService) Create(ctx context.Context, key, value string) (*domain.Entry, error) {
	k, err := s.validate(key, value)
	if err != nil {
		return nil, err
	}

	exists, err := s.backend.Contains(ctx, k)
	if err != nil {
		return nil, s.backendFailure(ctx, OpContains, k, err)
	}
	s.recorder.ObserveStoreOp(OpContains, metric.ResultOK)
	if exists {
		s.recorder.ObserveStoreOp(OpUpsert, metric.ResultConflict)
		return nil, domain.ErrKeyExists.WithDetails("key: " + key)
	}

	sv, _, err := s.backend.Upsert(ctx, k, value)
	if err != nil {
		return nil, s.backendFailure(ctx, OpUpsert, k, err)
	}

	s.recorder.ObserveStoreOp(OpUpsert, metric.ResultOK)
	s.logger.Debug("key created", "key", key)
	return &domain.Entry{Key: k, StoredValue: sv}, nil
}

// Put creates or replaces the entry under key.
func (s *KVService) Put(ctx context.Context, key, value string) (*PutResult, error) {
	k, err := s.validate(key, value)
	if err != nil {
		return nil, err
	}

	sv, outcome, err := s.backend.Upsert(ctx, k, value)
	if err != nil {
		return nil, s.backendFailure(ctx, OpUpsert, k, err)
	}

	s.recorder.ObserveStoreOp(OpUpsert, metric.ResultOK)
	s.logger.Debug("key written", "key", key, "outcome", outcome.String())
	return &PutResult{
		Entry:   &domain.Entry{Key: k, StoredValue: sv},
		Outcome: outcome,
	}, nil
}

// Delete removes key and returns the removed entry.
func (s *KVService) Delete(ctx context.Context, key string) (*domain.Entry, error) {
	k, err := domain.ParseKey(key)
	if err != nil {
		return nil, err
	}

	sv, ok, err := s.backend.Delete(ctx, k)
	if err != nil {
		return nil, s.backendFailure(ctx, OpDelete, k, err)
	}
	if !ok {
		s.recorder.ObserveStoreOp(OpDelete, metric.ResultNotFound)
		return nil, domain.ErrKeyNotFound.WithDetails("key: " + key)
	}

	s.recorder.ObserveStoreOp(OpDelete, metric.ResultOK)
	s.logger.Debug("key deleted", "key", key)
	return &domain.Entry{Key: k, StoredValue: sv}, nil
}

// Exists reports whether key is present.
func (s *KVService) Exists(ctx context.Context, key string) (bool, error) {
	k, err := domain.ParseKey(key)
	if err != nil {
		return false, err
	}

	ok, err := s.backend.Contains(ctx, k)
	if err != nil {
		return false, s.backendFailure(ctx, OpContains, k, err)
	}
	s.recorder.ObserveStoreOp(OpContains, metric.ResultOK)
	return ok, nil
}

// List returns all keys in ascending order. The slice is never nil.
func (s *KVService) List(ctx context.Context) ([]string, error) {
	keys, err := s.backend.ListKeys(ctx)
	if err != nil {
		return nil, s.backendFailure(ctx, OpList, "", err)
	}
	s.recorder.ObserveStoreOp(OpList, metric.ResultOK)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	sort.Strings(out)
	return out, nil
}

// Count returns the number of stored keys.
func (s *KVService) Count(ctx context.Context) (int, error) {
	if c, ok := s.backend.(storage.Counter); ok {
		return c.Count(), nil
	}
	keys, err := s.backend.ListKeys(ctx)
	if err != nil {
		return 0, s.backendFailure(ctx, OpList, "", err)
	}
	s.recorder.ObserveStoreOp(OpList, metric.ResultOK)
	return len(keys), nil
}

// Ready reports whether the backend is serving requests.
func (s *KVService) Ready(ctx context.Context) error {
	if _, err := s.backend.Contains(ctx, readyProbeKey); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *KVService) validate(key, value string) (domain.Key, error) {
	k, err := domain.ParseKey(key)
	if err != nil {
		return "", err
	}
	if err := domain.ValidateValue(value, s.maxValueBytes); err != nil {
		return "", err
	}
	return k, nil
}

// backendFailure records and logs a backend error and returns it in the
// backend-unavailable class.
func (s *KVService) backendFailure(ctx context.Context, op string, key domain.Key, err error) error {
	s.recorder.ObserveStoreOp(op, metric.ResultError)
	s.logger.WithContext(ctx).Error("storage operation failed",
		"op", op,
		"key", key.String(),
		"error", err)
	return unavailable(err)
}

func unavailable(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrBackendUnavailable.WithCause(err)
}
