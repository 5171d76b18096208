// Package ratelimit provides per-client token bucket rate limiting.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused client limiter is kept.
const DefaultIdleTTL = 10 * time.Minute

// sweepEvery is the number of Allow calls between stale-entry sweeps.
const sweepEvery = 1024

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerKey keeps one token bucket per client key (usually an IP address).
// It is safe for concurrent use.
type PerKey struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*entry
	calls   int
}

// Option configures a PerKey limiter.
type Option func(*PerKey)

// WithIdleTTL sets how long an idle client limiter is retained.
func WithIdleTTL(ttl time.Duration) Option {
	return func(p *PerKey) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithClock replaces the clock used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(p *PerKey) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a limiter allowing perSecond events per key with the given
// burst. A burst below 1 is raised to 1.
func New(perSecond float64, burst int, opts ...Option) *PerKey {
	if burst < 1 {
		burst = 1
	}
	p := &PerKey{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     DefaultIdleTTL,
		now:     time.Now,
		clients: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Allow reports whether key may perform one more event now.
func (p *PerKey) Allow(key string) bool {
	p.mu.Lock()
	now := p.now()

	e, ok := p.clients[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.clients[key] = e
	}
	e.lastSeen = now

	p.calls++
	if p.calls >= sweepEvery {
		p.calls = 0
		p.sweepLocked(now)
	}
	p.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (p *PerKey) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Sweep drops limiters idle for longer than the TTL.
func (p *PerKey) Sweep() {
	p.mu.Lock()
	p.sweepLocked(p.now())
	p.mu.Unlock()
}

func (p *PerKey) sweepLocked(now time.Time) {
	for k, e := range p.clients {
		if now.Sub(e.lastSeen) > p.ttl {
			delete(p.clients, k)
		}
	}
}
