// Package dedup provides a bounded, time-windowed cache of recently seen
// event identifiers to prevent double-processing of redelivered events.
package dedup

import (
	"sync"
	"time"
)

const (
	// DefaultMaxEntries is the cache size above which a sweep is triggered.
	DefaultMaxEntries = 1000
	// DefaultRetention is how long an identifier stays relevant.
	DefaultRetention = 600 * time.Second
)

// Cache records first-seen timestamps per event identifier. Cleanup is
// amortized: a sweep runs only when an insert pushes the cache past the
// size bound, never on a timer.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	maxEntries int
	retention  time.Duration
	now        func() time.Time
}

// New creates a cache with the default bounds.
func New() *Cache {
	return &Cache{
		entries:    make(map[string]time.Time),
		maxEntries: DefaultMaxEntries,
		retention:  DefaultRetention,
		now:        time.Now,
	}
}

// Seen reports whether id was already recorded, recording it if not.
// An empty id is never considered a duplicate and is not recorded.
func (c *Cache) Seen(id string) bool {
	if id == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; ok {
		return true
	}
	c.entries[id] = c.now()

	if len(c.entries) > c.maxEntries {
		c.entries = Sweep(c.entries, c.now(), c.retention)
	}
	return false
}

// Len returns the current number of cached identifiers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep returns the entries younger than maxAge at the given instant.
// It never mutates its input.
func Sweep(entries map[string]time.Time, now time.Time, maxAge time.Duration) map[string]time.Time {
	cutoff := now.Add(-maxAge)
	kept := make(map[string]time.Time, len(entries))
	for id, seen := range entries {
		if seen.After(cutoff) {
			kept[id] = seen
		}
	}
	return kept
}
