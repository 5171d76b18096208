// Package storagetest provides a contract test suite shared by every
// storage.Backend implementation.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/storage"
)

// Factory builds a fresh, empty backend. The backend must read time from
// clock. Cleanup is registered by the factory through t.Cleanup.
type Factory func(t *testing.T, clock func() time.Time) storage.Backend

// Clock is a manually advanced clock safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current clock reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock by d, which may be negative.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Run executes the contract suite against backends built by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, newBackend Factory)
	}{
		{"GetNeverWritten", testGetNeverWritten},
		{"UpsertCreates", testUpsertCreates},
		{"UpsertUpdatesPreservesCreatedAt", testUpsertUpdates},
		{"UpdatedAtNeverMovesBackwards", testClockBackwards},
		{"DeleteReturnsRemoved", testDeleteReturnsRemoved},
		{"DeleteMissingIsNoop", testDeleteMissing},
		{"RecreateAfterDelete", testRecreateAfterDelete},
		{"Contains", testContains},
		{"ListKeysEmpty", testListKeysEmpty},
		{"ListKeysExact", testListKeysExact},
		{"ReturnedValuesAreCopies", testReturnedCopies},
		{"ConcurrentDistinctKeys", testConcurrentDistinctKeys},
		{"ConcurrentSameKey", testConcurrentSameKey},
		{"ConcurrentMixed", testConcurrentMixed},
		{"LastWritePerKeySurvives", testLastWritePerKeySurvives},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newBackend)
		})
	}
}

func key(s string) domain.Key {
	return domain.MustParseKey(s)
}

func mustUpsert(t *testing.T, b storage.Backend, k domain.Key, v string) (domain.StoredValue, domain.UpsertOutcome) {
	t.Helper()
	sv, outcome, err := b.Upsert(context.Background(), k, v)
	if err != nil {
		t.Fatalf("Upsert(%q) error: %v", k, err)
	}
	return sv, outcome
}

func testGetNeverWritten(t *testing.T, newBackend Factory) {
	b := newBackend(t, NewClock(epoch).Now)

	_, ok, err := b.Get(context.Background(), key("missing"))
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("Get() on never-written key should report absent")
	}
}

func testUpsertCreates(t *testing.T, newBackend Factory) {
	clock := NewClock(epoch)
	b := newBackend(t, clock.Now)

	sv, outcome := mustUpsert(t, b, key("k1"), "v1")
	if outcome != domain.OutcomeCreated {
		t.Errorf("outcome = %v, want created", outcome)
	}
	if sv.Value != "v1" {
		t.Errorf("Value = %q, want %q", sv.Value, "v1")
	}
	if !sv.CreatedAt.Equal(sv.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v on creation", sv.CreatedAt, sv.UpdatedAt)
	}
	if !sv.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", sv.CreatedAt, epoch)
	}

	got, ok, err := b.Get(context.Background(), key("k1"))
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if got.Value != "v1" || !got.CreatedAt.Equal(sv.CreatedAt) || !got.UpdatedAt.Equal(sv.UpdatedAt) {
		t.Errorf("Get() = %+v, want %+v", got, sv)
	}
}

func testUpsertUpdates(t *testing.T, newBackend Factory) {
	clock := NewClock(epoch)
	b := newBackend(t, clock.Now)

	first, _ := mustUpsert(t, b, key("k1"), "v1")

	clock.Advance(time.Second)
	second, outcome := mustUpsert(t, b, key("k1"), "v2")
	if outcome != domain.OutcomeUpdated {
		t.Errorf("outcome = %v, want updated", outcome)
	}
	if second.Value != "v2" {
		t.Errorf("Value = %q, want %q", second.Value, "v2")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want after %v", second.UpdatedAt, first.UpdatedAt)
	}

	got, ok, err := b.Get(context.Background(), key("k1"))
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if got.Value != "v2" || !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Get() = %+v after update", got)
	}
}

func testClockBackwards(t *testing.T, newBackend Factory) {
	clock := NewClock(epoch)
	b := newBackend(t, clock.Now)

	first, _ := mustUpsert(t, b, key("k1"), "v1")

	clock.Advance(-time.Hour)
	second, _ := mustUpsert(t, b, key("k1"), "v2")
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Errorf("UpdatedAt moved backwards: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if second.UpdatedAt.Before(second.CreatedAt) {
		t.Errorf("UpdatedAt %v before CreatedAt %v", second.UpdatedAt, second.CreatedAt)
	}
}

func testDeleteReturnsRemoved(t *testing.T, newBackend Factory) {
	b := newBackend(t, NewClock(epoch).Now)
	ctx := context.Background()

	stored, _ := mustUpsert(t, b, key("k1"), "v1")

	removed, ok, err := b.Delete(ctx, key("k1"))
	if err != nil || !ok {
		t.Fatalf("Delete() = ok %v, err %v", ok, err)
	}
	if removed.Value != "v1" || !removed.CreatedAt.Equal(stored.CreatedAt) {
		t.Errorf("Delete() returned %+v, want %+v", removed, stored)
	}

	if _, ok, _ := b.Get(ctx, key("k1")); ok {
		t.Error("Get() after Delete should report absent")
	}
	if has, _ := b.Contains(ctx, key("k1")); has {
		t.Error("Contains() after Delete should be false")
	}
}

func testDeleteMissing(t *testing.T, newBackend Factory) {
	b := newBackend(t, NewClock(epoch).Now)
	ctx := context.Background()

	mustUpsert(t, b, key("other"), "v")

	_, ok, err := b.Delete(ctx, key("missing"))
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ok {
		t.Error("Delete() of missing key should report absent")
	}

	keys, err := b.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys() error: %v", err)
	}
	if len(keys) != 1 || keys[0] != key("other") {
		t.Errorf("ListKeys() = %v, want [other]", keys)
	}
}

func testRecreateAfterDelete(t *testing.T, newBackend Factory) {
	clock := NewClock(epoch)
	b := newBackend(t, clock.Now)

	mustUpsert(t, b, key("k1"), "v1")
	if _, _, err := b.Delete(context.Background(), key("k1")); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	clock.Advance(time.Minute)
	sv, outcome := mustUpsert(t, b, key("k1"), "v2")
	if outcome != domain.OutcomeCreated {
		t.Errorf("outcome = %v, want created", outcome)
	}
	if !sv.CreatedAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("CreatedAt = %v, want fresh timestamp", sv.CreatedAt)
	}
}

func testContains(t *testing.T, newBackend Factory) {
	b := newBackend(t, NewClock(epoch).Now)
	ctx := context.Background()

	mustUpsert(t, b, key("present"), "v")

	tests := []struct {
		key  domain.Key
		want bool
	}{
		{key("present"), true},
		{key("absent"), false},
	}
	for _, tt := range tests {
		got, err := b.Contains(ctx, tt.key)
		if err != nil {
			t.Fatalf("Contains(%q) error: %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func testListKeysEmpty(t *testing.T, newBackend Factory) {
	b := newBackend(t, NewClock(epoch).Now)

	keys, err := b.ListKeys(context.Background())
	if err != nil {
		t.Fatalf("ListKeys() error: %v", err)
	}
	if keys == nil {
		t.Error("ListKeys() should return a non-nil slice")
	}
	if len(keys) != 0 {
		t.Errorf("ListKeys() = %v, want empty", keys)
	}
}

func testListKeysExact(t *testing.T, newBackend Factory) {
	b := newBackend(t, NewClock(epoch).Now)
	ctx := context.Background()

	const n = 200
	want := make(map[domain.Key]bool, n)
	for i := 0; i < n; i++ {
		k := key(fmt.Sprintf("key-%d", i))
		mustUpsert(t, b, k, "v")
		want[k] = true
	}
	// Overwrites must not produce duplicates.
	mustUpsert(t, b, key("key-0"), "again")

	keys, err := b.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys() error: %v", err)
	}
	if len(keys) != n {
		t.Fatalf("ListKeys() returned %d keys, want %d", len(keys), n)
	}
	seen := make(map[domain.Key]bool, n)
	for _, k := range keys {
		if seen[k] {
			t.Errorf("duplicate key %q", k)
		}
		seen[k] = true
		if !want[k] {
			t.Errorf("unexpected key %q", k)
		}
	}

	if c, ok := b.(storage.Counter); ok && c.Count() != n {
		t.Errorf("Count() = %d, want %d", c.Count(), n)
	}
}

func testReturnedCopies(t *testing.T, newBackend Factory) {
	b := newBackend(t, NewClock(epoch).Now)
	ctx := context.Background()

	mustUpsert(t, b, key("k1"), "v1")

	held, _, _ := b.Get(ctx, key("k1"))
	mustUpsert(t, b, key("k1"), "v2")

	if held.Value != "v1" {
		t.Errorf("held value changed to %q after later write", held.Value)
	}
}

func testConcurrentDistinctKeys(t *testing.T, newBackend Factory) {
	b := newBackend(t, time.Now)
	ctx := context.Background()

	const workers, perWorker = 16, 100

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				k := key(fmt.Sprintf("w%d-k%d", w, i))
				if _, outcome, err := b.Upsert(ctx, k, "v"); err != nil {
					return err
				} else if outcome != domain.OutcomeCreated {
					return fmt.Errorf("key %s: outcome %v, want created", k, outcome)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	keys, err := b.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys() error: %v", err)
	}
	if len(keys) != workers*perWorker {
		t.Errorf("ListKeys() returned %d keys, want %d", len(keys), workers*perWorker)
	}
}

func testConcurrentSameKey(t *testing.T, newBackend Factory) {
	b := newBackend(t, time.Now)
	ctx := context.Background()
	k := key("contended")

	const workers = 32

	var (
		mu      sync.Mutex
		created int
		written = make(map[string]bool, workers)
	)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		v := fmt.Sprintf("value-%d", w)
		g.Go(func() error {
			sv, outcome, err := b.Upsert(ctx, k, v)
			if err != nil {
				return err
			}
			if sv.UpdatedAt.Before(sv.CreatedAt) {
				return fmt.Errorf("UpdatedAt %v before CreatedAt %v", sv.UpdatedAt, sv.CreatedAt)
			}
			mu.Lock()
			if outcome == domain.OutcomeCreated {
				created++
			}
			written[v] = true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if created != 1 {
		t.Errorf("%d upserts reported created, want exactly 1", created)
	}

	got, ok, err := b.Get(ctx, k)
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if !written[got.Value] {
		t.Errorf("final value %q was never written", got.Value)
	}
}

func testConcurrentMixed(t *testing.T, newBackend Factory) {
	b := newBackend(t, time.Now)
	ctx := context.Background()

	keys := make([]domain.Key, 8)
	for i := range keys {
		keys[i] = key(fmt.Sprintf("mixed-%d", i))
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 200; i++ {
				k := keys[(w+i)%len(keys)]
				switch i % 4 {
				case 0, 1:
					if _, _, err := b.Upsert(gctx, k, fmt.Sprintf("%d-%d", w, i)); err != nil {
						return err
					}
				case 2:
					if _, _, err := b.Delete(gctx, k); err != nil {
						return err
					}
				default:
					sv, ok, err := b.Get(gctx, k)
					if err != nil {
						return err
					}
					if ok && sv.UpdatedAt.Before(sv.CreatedAt) {
						return fmt.Errorf("key %s: UpdatedAt before CreatedAt", k)
					}
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for i := 0; i < 50; i++ {
			list, err := b.ListKeys(gctx)
			if err != nil {
				return err
			}
			seen := make(map[domain.Key]bool, len(list))
			for _, k := range list {
				if seen[k] {
					return fmt.Errorf("duplicate key %q in ListKeys", k)
				}
				seen[k] = true
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

// testLastWritePerKeySurvives gives every worker its own keys and records
// the last write it made to each. Other workers churn shared keys at the same
// time. After the join every owned key must hold exactly its last write.
func testLastWritePerKeySurvives(t *testing.T, newBackend Factory) {
	b := newBackend(t, time.Now)
	ctx := context.Background()

	const workers, keysPerWorker, rounds = 8, 4, 150

	type last struct {
		value   string
		deleted bool
	}
	results := make([]map[domain.Key]last, workers)

	shared := []domain.Key{key("shared-0"), key("shared-1")}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			final := make(map[domain.Key]last, keysPerWorker)
			for i := 0; i < rounds; i++ {
				k := key(fmt.Sprintf("own-%d-%d", w, i%keysPerWorker))
				// Every fifth round deletes; the mix leaves some keys deleted
				// and some written at the end.
				if (i+w)%5 == 0 {
					if _, _, err := b.Delete(gctx, k); err != nil {
						return err
					}
					final[k] = last{deleted: true}
				} else {
					v := fmt.Sprintf("w%d-r%d", w, i)
					if _, _, err := b.Upsert(gctx, k, v); err != nil {
						return err
					}
					final[k] = last{value: v}
				}

				sk := shared[i%len(shared)]
				if i%3 == 0 {
					if _, _, err := b.Delete(gctx, sk); err != nil {
						return err
					}
				} else if _, _, err := b.Upsert(gctx, sk, "churn"); err != nil {
					return err
				}
			}
			results[w] = final
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	for w, final := range results {
		for k, want := range final {
			sv, ok, err := b.Get(ctx, k)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", k, err)
			}
			switch {
			case want.deleted && ok:
				t.Errorf("worker %d: key %q = %q, want absent after final delete", w, k, sv.Value)
			case !want.deleted && !ok:
				t.Errorf("worker %d: key %q absent, want %q", w, k, want.value)
			case !want.deleted && sv.Value != want.value:
				t.Errorf("worker %d: key %q = %q, want last write %q", w, k, sv.Value, want.value)
			}
		}
	}
}
