package atlas

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Budget cache errors.
var (
	// ErrEntryTooLarge is returned when a single entry exceeds the whole
	// byte budget. The cache is left unchanged; the caller uses the entry
	// uncached for the frame.
	ErrEntryTooLarge = errors.New("atlas: entry exceeds cache byte budget")
)

// DefaultBudget is the default byte budget for a BudgetCache (256 MiB).
const DefaultBudget = 256 << 20

// BudgetKey identifies one rasterized glyph in the byte-budget cache.
// Unlike GlyphKey it carries the full rasterization parameters, since
// entries may outlive any single font-context generation.
type BudgetKey struct {
	FontID   uint64
	GlyphID  uint32
	FontSize uint16 // pixels
	DPI      uint16
	Weight   uint16
	Italic   bool
}

// BudgetEntry records where a cached bitmap lives and how many bytes of
// rasterized data it accounts for.
type BudgetEntry struct {
	TextureID uint32
	X, Y      uint16
	Width     uint16
	Height    uint16
	DataSize  uint64
}

// BudgetStats captures byte-budget cache counters.
type BudgetStats struct {
	Hits       uint64
	Misses     uint64
	Insertions uint64
	Evictions  uint64
	Rejections uint64
	BytesLive  uint64
	Entries    int
}

// BudgetCache bounds the total byte footprint of cached glyph bitmaps,
// evicting the least-recently-touched entries until new insertions fit.
//
// Recency is tracked with a doubly-linked list plus a map index, so both
// TryGet and Insert are O(1) amortized. A single mutex guards the index;
// the critical sections are short, and steady-state frames mostly hit.
type BudgetCache struct {
	mu      sync.Mutex
	budget  uint64
	used    uint64
	entries map[BudgetKey]*budgetRecord
	recency lruList[BudgetKey]

	// onEvict, when set, runs for each evicted entry while the cache
	// lock is held. Keep it cheap; it exists so texture sub-regions can
	// be recycled by the owner.
	onEvict func(BudgetKey, BudgetEntry)

	hits       atomic.Uint64
	misses     atomic.Uint64
	insertions atomic.Uint64
	evictions  atomic.Uint64
	rejections atomic.Uint64
}

type budgetRecord struct {
	entry BudgetEntry
	node  *lruNode[BudgetKey]
}

// NewBudgetCache creates a cache bounded to the given byte budget.
// A budget of zero or less falls back to DefaultBudget.
func NewBudgetCache(budget uint64) *BudgetCache {
	if budget == 0 {
		budget = DefaultBudget
	}
	return &BudgetCache{
		budget:  budget,
		entries: make(map[BudgetKey]*budgetRecord, 256),
	}
}

// SetEvictionHook installs a callback invoked for every evicted entry.
func (c *BudgetCache) SetEvictionHook(fn func(BudgetKey, BudgetEntry)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// TryGet returns the entry for key if cached, marking it most recently
// used.
func (c *BudgetCache) TryGet(key BudgetKey) (BudgetEntry, bool) {
	c.mu.Lock()
	rec, ok := c.entries[key]
	if ok {
		c.recency.MoveToFront(rec.node)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return BudgetEntry{}, false
	}
	c.hits.Add(1)
	return rec.entry, true
}

// Insert adds an entry, evicting least-recently-touched entries until
// usage plus the new entry fits the budget.
//
// When the entry alone exceeds the whole budget, Insert returns
// ErrEntryTooLarge and leaves the cache unchanged. Inserting an existing
// key replaces its entry and refreshes its recency.
func (c *BudgetCache) Insert(key BudgetKey, entry BudgetEntry) error {
	if entry.DataSize > c.budget {
		c.rejections.Add(1)
		return ErrEntryTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.entries[key]; ok {
		c.used -= rec.entry.DataSize
		c.used += entry.DataSize
		rec.entry = entry
		c.recency.MoveToFront(rec.node)
		c.evictUntilFitLocked()
		return nil
	}

	for c.used+entry.DataSize > c.budget && c.recency.Len() > 0 {
		c.evictOldestLocked()
	}

	node := c.recency.PushFront(key)
	c.entries[key] = &budgetRecord{entry: entry, node: node}
	c.used += entry.DataSize
	c.insertions.Add(1)
	return nil
}

// Remove drops a single entry, if present. The eviction hook does not
// run; Remove is for entries the owner has already recycled itself.
func (c *BudgetCache) Remove(key BudgetKey) {
	c.mu.Lock()
	if rec, ok := c.entries[key]; ok {
		c.recency.Remove(rec.node)
		c.used -= rec.entry.DataSize
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// Clear drops every entry without running the eviction hook.
func (c *BudgetCache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.recency.Clear()
	c.used = 0
	c.mu.Unlock()
}

// Used returns the current live byte total.
func (c *BudgetCache) Used() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Budget returns the configured byte budget.
func (c *BudgetCache) Budget() uint64 {
	return c.budget
}

// Len returns the number of live entries.
func (c *BudgetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache counters.
func (c *BudgetCache) Stats() BudgetStats {
	c.mu.Lock()
	used := c.used
	n := len(c.entries)
	c.mu.Unlock()

	return BudgetStats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Insertions: c.insertions.Load(),
		Evictions:  c.evictions.Load(),
		Rejections: c.rejections.Load(),
		BytesLive:  used,
		Entries:    n,
	}
}

func (c *BudgetCache) evictUntilFitLocked() {
	for c.used > c.budget && c.recency.Len() > 0 {
		c.evictOldestLocked()
	}
}

func (c *BudgetCache) evictOldestLocked() {
	key, ok := c.recency.RemoveOldest()
	if !ok {
		return
	}
	rec := c.entries[key]
	delete(c.entries, key)
	c.used -= rec.entry.DataSize
	c.evictions.Add(1)
	if c.onEvict != nil {
		c.onEvict(key, rec.entry)
	}
}
