// internal/cache/cache.go
package cache

import (
	"sort"
	"sync/atomic"
	"time"
)

// Sample is one good reading of a tag.
type Sample struct {
	Value float64

	// Timestamp is when the client committed the value.
	Timestamp time.Time

	// SourceTimestamp is the server-provided timestamp, zero if absent.
	SourceTimestamp time.Time
}

// Failure describes why the latest read of a tag did not produce a value.
type Failure struct {
	Status      uint32
	Description string
	At          time.Time
}

// Freshness of an entry as seen by consumers.
type Freshness int

const (
	NoData Freshness = iota
	Fresh
	Stale
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "no_data"
	}
}

// Entry is the consumer view of one tag.
// Sample always holds the last good value; it is never replaced by a failed read.
type Entry struct {
	Name     string
	Sample   Sample
	HasValue bool
	Fresh    bool

	// LastFailure is the most recent failure since the last good read.
	LastFailure *Failure

	UpdatedAt time.Time
}

// Freshness classifies the entry.
func (e Entry) Freshness() Freshness {
	switch {
	case !e.HasValue:
		return NoData
	case e.Fresh:
		return Fresh
	default:
		return Stale
	}
}

// Cache maps logical tag names to their latest entry.
// The key set is fixed at construction. There is exactly one writer
// (the polling engine); readers may call Get/GetAll concurrently.
type Cache struct {
	names   []string
	entries map[string]*atomic.Pointer[Entry]
}

// New creates a cache for the given logical names. Duplicates are ignored.
func New(names []string) *Cache {
	c := &Cache{
		entries: make(map[string]*atomic.Pointer[Entry], len(names)),
	}
	for _, n := range names {
		if _, dup := c.entries[n]; dup {
			continue
		}
		p := &atomic.Pointer[Entry]{}
		p.Store(&Entry{Name: n})
		c.entries[n] = p
		c.names = append(c.names, n)
	}
	return c
}

// Names returns the logical names in construction order.
func (c *Cache) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Get returns the entry for name. ok is false for unknown names.
func (c *Cache) Get(name string) (Entry, bool) {
	p, ok := c.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *p.Load(), true
}

// GetAll returns a point-in-time copy of every entry.
func (c *Cache) GetAll() map[string]Entry {
	out := make(map[string]Entry, len(c.entries))
	for n, p := range c.entries {
		out[n] = *p.Load()
	}
	return out
}

// Snapshot returns every entry in construction order.
func (c *Cache) Snapshot() []Entry {
	out := make([]Entry, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, *c.entries[n].Load())
	}
	return out
}

// Commit stores a good sample and marks the entry fresh.
// Returns false for unknown names.
func (c *Cache) Commit(name string, s Sample) bool {
	p, ok := c.entries[name]
	if !ok {
		return false
	}
	p.Store(&Entry{
		Name:      name,
		Sample:    s,
		HasValue:  true,
		Fresh:     true,
		UpdatedAt: s.Timestamp,
	})
	return true
}

// MarkStale records a failure for name without touching its sample.
func (c *Cache) MarkStale(name string, f Failure) bool {
	p, ok := c.entries[name]
	if !ok {
		return false
	}
	next := *p.Load()
	next.Fresh = false
	fc := f
	next.LastFailure = &fc
	next.UpdatedAt = f.At
	p.Store(&next)
	return true
}

// MarkAllStale records the same failure on every entry.
func (c *Cache) MarkAllStale(f Failure) {
	for _, n := range c.names {
		c.MarkStale(n, f)
	}
}

// FreshCount returns how many entries are currently fresh.
func (c *Cache) FreshCount() int {
	n := 0
	for _, p := range c.entries {
		if p.Load().Fresh {
			n++
		}
	}
	return n
}

// SortedNames is a helper for deterministic output.
func SortedNames(m map[string]Entry) []string {
	out := make([]string, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
