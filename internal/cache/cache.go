// Package cache provides memoization keyed by a value and a version token.
package cache

import "sync"

type entry[V any] struct {
	token uint64
	value V
}

// Versioned memoizes one value per key. A stored value is returned only
// while the caller's token matches the token it was computed under.
// The zero value is ready to use and safe for concurrent use.
//
// compute must be deterministic for a given key and token: when two
// goroutines miss at the same time both compute, and the last store wins.
type Versioned[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
}

// Get returns the value for key computed under token, calling compute on a
// miss or when the stored value is stale.
func (c *Versioned[K, V]) Get(key K, token uint64, compute func() V) V {
	if v, ok := c.Lookup(key, token); ok {
		return v
	}

	v := compute()

	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[K]entry[V])
	}
	c.entries[key] = entry[V]{token: token, value: v}
	c.mu.Unlock()
	return v
}

// Lookup returns the stored value for key if it was computed under token.
func (c *Versioned[K, V]) Lookup(key K, token uint64) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || e.token != token {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Len returns the number of stored entries, stale or not.
func (c *Versioned[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every entry not computed under token.
func (c *Versioned[K, V]) Purge(token uint64) {
	c.mu.Lock()
	for k, e := range c.entries {
		if e.token != token {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
