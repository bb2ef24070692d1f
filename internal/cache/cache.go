// Package cache holds resolved secrets in a bounded, time-limited LRU.
//
// Two independent expiry rules apply to every entry. The cache itself drops
// an entry once its TTL has elapsed since insertion, and the Record carries
// the store-declared validity window checked by Record.ValidAt. TTL is
// evaluated lazily on access; there is no background sweeper.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/simplelru"
	"github.com/jonboulle/clockwork"

	scerrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/internal/secure"
)

// Record is a cached secret value together with its validity window.
type Record struct {
	Value     []byte
	NotBefore *time.Time
	ExpiresAt *time.Time
	Enabled   *bool
	Version   string
	CachedAt  time.Time
}

// ValidAt reports whether the record may be served at now. A record without
// ExpiresAt never expires on its own.
func (r Record) ValidAt(now time.Time) bool {
	if r.Enabled != nil && !*r.Enabled {
		return false
	}
	if r.NotBefore != nil && now.Before(*r.NotBefore) {
		return false
	}
	if r.ExpiresAt != nil && !now.Before(*r.ExpiresAt) {
		return false
	}
	return true
}

// Stats are cumulative counters since construction.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
}

type entry struct {
	record   Record
	sealed   *secure.Sealed
	storedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	lru   *lru.LRU
	ttl   time.Duration
	max   int
	clock clockwork.Clock
	seal  bool
	stats Stats
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the clock used for TTL bookkeeping.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithSealedValues keeps payloads encrypted in memory between reads.
func WithSealedValues() Option {
	return func(c *Cache) {
		c.seal = true
	}
}

// New creates a cache holding at most maxEntries records for ttl each.
func New(maxEntries int, ttl time.Duration, opts ...Option) (*Cache, error) {
	if maxEntries <= 0 {
		return nil, scerrors.ConfigError{
			Field:      "cacheMaxEntries",
			Value:      maxEntries,
			Message:    "must be greater than zero",
			Suggestion: "The default is 1000 entries",
		}
	}
	if ttl <= 0 {
		return nil, scerrors.ConfigError{
			Field:      "cacheTtlSeconds",
			Value:      ttl,
			Message:    "must be greater than zero",
			Suggestion: "The default is 60 seconds",
		}
	}

	c := &Cache{
		ttl:   ttl,
		max:   maxEntries,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}

	l, err := lru.NewLRU(maxEntries, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// onEvict runs under c.mu for every removal, explicit or not.
func (c *Cache) onEvict(_ interface{}, value interface{}) {
	if e, ok := value.(*entry); ok && e.sealed != nil {
		e.sealed.Destroy()
	}
}

// Get returns the record stored under key. A TTL-elapsed entry is removed
// and reported as absent. A hit refreshes the entry's recency.
func (c *Cache) Get(key string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return Record{}, false
	}
	e := v.(*entry)

	if c.clock.Since(e.storedAt) >= c.ttl {
		c.lru.Remove(key)
		c.stats.Expirations++
		c.stats.Misses++
		return Record{}, false
	}

	rec := e.record
	if e.sealed != nil {
		value, err := e.sealed.Reveal()
		if err != nil {
			c.lru.Remove(key)
			c.stats.Misses++
			return Record{}, false
		}
		rec.Value = value
	} else {
		rec.Value = clone(e.record.Value)
	}

	c.stats.Hits++
	return rec, true
}

// Put stores rec under key, replacing any previous entry. CachedAt is set to
// the current time.
func (c *Cache) Put(key string, rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	rec.CachedAt = now
	e := &entry{storedAt: now}
	if c.seal {
		e.sealed = secure.Seal(rec.Value)
		rec.Value = nil
	} else {
		rec.Value = clone(rec.Value)
	}
	e.record = rec

	// Add on an existing key swaps the value without calling onEvict.
	c.lru.Remove(key)
	if c.lru.Add(key, e) {
		c.stats.Evictions++
	}
}

// Invalidate removes key. It is a no-op if key is absent.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len is the number of entries currently held, including ones whose TTL has
// elapsed but have not been accessed since.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Cap is the maximum number of entries.
func (c *Cache) Cap() int {
	return c.max
}

// TTL is the per-entry time to live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
