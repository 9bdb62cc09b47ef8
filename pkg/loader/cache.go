package loader

import (
	"slices"
	"sync"
)

// Cache holds the current snapshot per country. Entries are replaced whole.
type Cache struct {
	mu    sync.RWMutex
	snaps map[string]*Snapshot
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{snaps: make(map[string]*Snapshot)}
}

// Get returns the cached snapshot for a normalized country code.
func (c *Cache) Get(country string) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snaps[country]
	return s, ok
}

// Put publishes snap, replacing any previous entry for its country.
func (c *Cache) Put(snap *Snapshot) {
	c.mu.Lock()
	c.snaps[snap.Country()] = snap
	c.mu.Unlock()
}

// Delete drops a country's entry.
func (c *Cache) Delete(country string) {
	c.mu.Lock()
	delete(c.snaps, country)
	c.mu.Unlock()
}

// Len returns the number of cached countries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snaps)
}

// Countries returns the cached country codes, sorted.
func (c *Cache) Countries() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.snaps))
	for k := range c.snaps {
		out = append(out, k)
	}
	c.mu.RUnlock()
	slices.Sort(out)
	return out
}
