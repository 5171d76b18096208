package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/spaolacci/murmur3"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// keyPrefix namespaces kvmesh records inside the Badger keyspace.
var keyPrefix = []byte("kv/")

// writeStripes is the number of per-key write locks. Must be a power of two.
const writeStripes = 256

// BadgerConfig configures the Badger backend.
type BadgerConfig struct {
	// MaxRetries bounds how often a write transaction is retried after
	// badger.ErrConflict.
	MaxRetries int

	// NumMemtables and MemTableSize tune Badger's in-memory tables.
	// Zero keeps Badger's defaults.
	NumMemtables int
	MemTableSize int64

	// Clock returns the current time. Nil uses time.Now.
	Clock func() time.Time
}

// DefaultBadgerConfig returns the default Badger backend configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		MaxRetries: 10,
	}
}

// record is the JSON form of a StoredValue inside Badger.
type record struct {
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r record) stored() domain.StoredValue {
	return domain.StoredValue{Value: r.Value, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

// BadgerBackend implements Backend on Badger v3 running in in-memory mode.
// Nothing is written to disk.
type BadgerBackend struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger
	now    func() time.Time

	// writes serializes Upsert and Delete per key so transactions from this
	// process never conflict with each other on the same key.
	writes [writeStripes]sync.Mutex

	count  atomic.Int64
	closed atomic.Bool
}

// NewBadgerBackend opens an in-memory Badger database.
func NewBadgerBackend(cfg BadgerConfig, logger *slog.Logger) (*BadgerBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultBadgerConfig().MaxRetries
	}

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = &badgerLogger{logger: logger}
	if cfg.NumMemtables > 0 {
		opts.NumMemtables = cfg.NumMemtables
	}
	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	logger.Info("badger backend started", "in_memory", true, "max_retries", cfg.MaxRetries)

	return &BadgerBackend{
		db:     db,
		cfg:    cfg,
		logger: logger,
		now:    now,
	}, nil
}

// lockKey locks the write stripe owning key and returns its unlock func.
func (b *BadgerBackend) lockKey(key domain.Key) func() {
	mu := &b.writes[murmur3.Sum64([]byte(key))&(writeStripes-1)]
	mu.Lock()
	return mu.Unlock
}

func dbKey(key domain.Key) []byte {
	b := make([]byte, 0, len(keyPrefix)+len(key))
	b = append(b, keyPrefix...)
	return append(b, key...)
}

// unavailable wraps err into the backend-unavailable error class.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsDomainError(err, domain.ErrBackendUnavailable.Code) {
		return err
	}
	return domain.ErrBackendUnavailable.WithCause(err)
}

func (b *BadgerBackend) checkOpen() error {
	if b.closed.Load() {
		return domain.ErrBackendUnavailable.WithDetails("badger backend closed")
	}
	return nil
}

func readRecord(txn *badger.Txn, key []byte) (record, bool, error) {
	var rec record
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return rec, false, nil
		}
		return rec, false, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return rec, false, fmt.Errorf("decode record: %w", err)
	}
	return rec, true, nil
}

// Get returns the record stored for key.
func (b *BadgerBackend) Get(ctx context.Context, key domain.Key) (domain.StoredValue, bool, error) {
	if err := b.checkOpen(); err != nil {
		return domain.StoredValue{}, false, err
	}

	var (
		rec   record
		found bool
	)
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		rec, found, err = readRecord(txn, dbKey(key))
		return err
	})
	if err != nil {
		return domain.StoredValue{}, false, unavailable(err)
	}
	if !found {
		return domain.StoredValue{}, false, nil
	}
	return rec.stored(), true, nil
}

// Upsert creates or replaces the record for key inside one transaction.
func (b *BadgerBackend) Upsert(ctx context.Context, key domain.Key, value string) (domain.StoredValue, domain.UpsertOutcome, error) {
	if err := b.checkOpen(); err != nil {
		return domain.StoredValue{}, 0, err
	}

	defer b.lockKey(key)()

	k := dbKey(key)
	var (
		rec     record
		outcome domain.UpsertOutcome
	)
	err := b.update(ctx, func(txn *badger.Txn) error {
		current, exists, err := readRecord(txn, k)
		if err != nil {
			return err
		}

		now := b.now().UTC()
		if exists {
			if now.Before(current.UpdatedAt) {
				now = current.UpdatedAt
			}
			rec = record{Value: value, CreatedAt: current.CreatedAt, UpdatedAt: now}
			outcome = domain.OutcomeUpdated
		} else {
			rec = record{Value: value, CreatedAt: now, UpdatedAt: now}
			outcome = domain.OutcomeCreated
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		return txn.Set(k, data)
	})
	if err != nil {
		return domain.StoredValue{}, 0, unavailable(err)
	}

	if outcome == domain.OutcomeCreated {
		b.count.Add(1)
	}
	return rec.stored(), outcome, nil
}

// Delete removes key and returns the removed record.
func (b *BadgerBackend) Delete(ctx context.Context, key domain.Key) (domain.StoredValue, bool, error) {
	if err := b.checkOpen(); err != nil {
		return domain.StoredValue{}, false, err
	}

	defer b.lockKey(key)()

	k := dbKey(key)
	var (
		rec   record
		found bool
	)
	err := b.update(ctx, func(txn *badger.Txn) error {
		var err error
		rec, found, err = readRecord(txn, k)
		if err != nil || !found {
			return err
		}
		return txn.Delete(k)
	})
	if err != nil {
		return domain.StoredValue{}, false, unavailable(err)
	}
	if !found {
		return domain.StoredValue{}, false, nil
	}

	b.count.Add(-1)
	return rec.stored(), true, nil
}

// Contains reports whether key exists. The value is not decoded.
func (b *BadgerBackend) Contains(ctx context.Context, key domain.Key) (bool, error) {
	if err := b.checkOpen(); err != nil {
		return false, err
	}

	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(dbKey(key))
		if err == nil {
			found = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, unavailable(err)
	}
	return found, nil
}

// ListKeys returns all keys visible to a single read transaction.
func (b *BadgerBackend) ListKeys(ctx context.Context) ([]domain.Key, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	keys := make([]domain.Key, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			k := it.Item().Key()
			keys = append(keys, domain.Key(k[len(keyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return keys, nil
}

// Count returns the number of stored keys.
func (b *BadgerBackend) Count() int {
	return int(b.count.Load())
}

// Close shuts the database down. Later calls fail with ErrBackendUnavailable.
func (b *BadgerBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.logger.Info("shutting down badger backend")
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on conflicts.
// Callers hold the key's write stripe; what is left are fingerprint
// collisions in Badger's conflict detection.
func (b *BadgerBackend) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < b.cfg.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.logger.Debug("badger transaction conflict, retrying", "attempt", attempt+1)
	}
	return fmt.Errorf("transaction conflict after %d attempts: %w", b.cfg.MaxRetries, err)
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
