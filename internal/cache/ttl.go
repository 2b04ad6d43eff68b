// internal/cache/ttl.go
//
// Fixed-validity response cache.
//
// Context
// -------
// Data slices keep upstream responses for a fixed window (5 minutes by
// default).  An entry written at T is served while now - T < ttl and is
// stale from then on.  A stale entry is never returned; it is superseded by
// the next Set for the same key.
//
// Because a gateway holds entries for many sessions, a sweep loop removes
// entries that are already stale, and a size cap drops the oldest entries
// when the map grows past maxEntries.  Neither pass changes what Get
// returns: the sweep only touches entries Get would refuse anyway.
//
// Notes
// -----
//   - The clock is injectable for tests (SetClock).
//   - Safe for concurrent use.
package cache

import (
	"sort"
	"sync"
	"time"
)

// DefaultTTL is the slice validity window.
const DefaultTTL = 5 * time.Minute

type entry[V any] struct {
	val      V
	storedAt time.Time
}

// TTL maps keys to values with a fixed validity window.
type TTL[K comparable, V any] struct {
	mu         sync.Mutex
	m          map[K]entry[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewTTL returns an empty cache.  ttl <= 0 selects DefaultTTL; maxEntries
// <= 0 disables the size cap.
func NewTTL[K comparable, V any](ttl time.Duration, maxEntries int) *TTL[K, V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTL[K, V]{
		m:          make(map[K]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (c *TTL[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// TTL returns the validity window.
func (c *TTL[K, V]) TTL() time.Duration { return c.ttl }

// Get returns the value for k when it is still valid.
func (c *TTL[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[k]
	if !ok || !c.fresh(e) {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Set stores v under k, superseding any previous entry.
func (c *TTL[K, V]) Set(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = entry[V]{val: v, storedAt: c.now()}
	if c.maxEntries > 0 && len(c.m) > c.maxEntries {
		c.trimLocked()
	}
}

// Delete removes k.
func (c *TTL[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.m, k)
	c.mu.Unlock()
}

// DeleteFunc removes every key for which match returns true and reports
// how many were removed.
func (c *TTL[K, V]) DeleteFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for k := range c.m {
		if match(k) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// Len reports the number of stored entries, stale ones included.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Sweep removes stale entries and returns the count.
func (c *TTL[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for k, e := range c.m {
		if !c.fresh(e) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// Run sweeps every interval until stop is closed.
func (c *TTL[K, V]) Run(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.Sweep()
		}
	}
}

func (c *TTL[K, V]) fresh(e entry[V]) bool {
	return c.now().Sub(e.storedAt) < c.ttl
}

// trimLocked drops the oldest entries until the cap is met.
func (c *TTL[K, V]) trimLocked() {
	type kv struct {
		key K
		at  time.Time
	}
	all := make([]kv, 0, len(c.m))
	for k, e := range c.m {
		all = append(all, kv{key: k, at: e.storedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	for i := 0; i < len(all)-c.maxEntries; i++ {
		delete(c.m, all[i].key)
	}
}
