package text

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// AttrFlags packs per-cell style bits that affect shaping or glyph
// selection.
type AttrFlags uint16

const (
	AttrBold AttrFlags = 1 << iota
	AttrItalic
	AttrUnderline
	AttrDoubleUnderline
	AttrCurlyUnderline
	AttrDottedUnderline
	AttrDashedUnderline
	AttrStrikethrough
	AttrDoubleWidth
	AttrDoubleHeight
)

// CellAttrs is the styled state of one terminal cell.
type CellAttrs struct {
	Foreground uint32 // RGBA
	Background uint32 // RGBA
	Flags      AttrFlags
}

// ShapedRow is the cached shaping result for one terminal row.
type ShapedRow struct {
	Index  int
	Glyphs []ShapedGlyph

	// Fingerprint is the content hash the row was shaped from.
	Fingerprint uint64

	// AtlasGeneration records which atlas generation the row's texture
	// coordinates were resolved against. The cache drops rows shaped
	// against older generations, since an atlas reset invalidates every
	// coordinate it ever issued.
	AtlasGeneration uint64
}

// RowStats captures row cache counters.
type RowStats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
}

// ShapeRowFunc shapes one row's content. It is the cache's collaborator;
// the renderer wires it to a Shaper plus fallback mapping.
type ShapeRowFunc func(content string, attrs []CellAttrs) ([]ShapedGlyph, error)

// RowCache avoids re-shaping rows whose content and attributes have not
// changed since the last frame.
//
// Invalidation is whole-row: a single changed cell re-shapes the entire
// row. The coarser granularity buys a simple invariant: a cached row is
// always fully consistent with the row content it was shaped from.
type RowCache struct {
	mu         sync.Mutex
	rows       []rowSlot
	shape      ShapeRowFunc
	generation uint64

	hits          atomic.Uint64
	misses        atomic.Uint64
	invalidations atomic.Uint64
}

type rowSlot struct {
	valid bool
	row   ShapedRow
}

// NewRowCache creates a cache for the given number of rows.
func NewRowCache(rows int, shape ShapeRowFunc) *RowCache {
	if rows < 0 {
		rows = 0
	}
	return &RowCache{
		rows:  make([]rowSlot, rows),
		shape: shape,
	}
}

// GetOrShape returns the shaped run for a row, re-shaping only when the
// row's content fingerprint changed since the cached result.
func (c *RowCache) GetOrShape(rowIndex int, content string, attrs []CellAttrs) (ShapedRow, error) {
	fp := rowFingerprint(content, attrs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if rowIndex < 0 || rowIndex >= len(c.rows) {
		// Out-of-range rows (during a resize race) shape uncached.
		return c.shapeRow(rowIndex, content, attrs, fp)
	}

	slot := &c.rows[rowIndex]
	if slot.valid && slot.row.Fingerprint == fp && slot.row.AtlasGeneration == c.generation {
		c.hits.Add(1)
		return slot.row, nil
	}

	c.misses.Add(1)
	row, err := c.shapeRow(rowIndex, content, attrs, fp)
	if err != nil {
		slot.valid = false
		return ShapedRow{}, err
	}
	slot.row = row
	slot.valid = true
	return row, nil
}

func (c *RowCache) shapeRow(rowIndex int, content string, attrs []CellAttrs, fp uint64) (ShapedRow, error) {
	glyphs, err := c.shape(content, attrs)
	if err != nil {
		return ShapedRow{}, err
	}
	return ShapedRow{
		Index:           rowIndex,
		Glyphs:          glyphs,
		Fingerprint:     fp,
		AtlasGeneration: c.generation,
	}, nil
}

// SetAtlasGeneration records the current atlas generation. Advancing it
// invalidates every cached row in the same operation, keeping texture
// coordinates and atlas contents in lockstep.
func (c *RowCache) SetAtlasGeneration(gen uint64) {
	c.mu.Lock()
	if c.generation != gen {
		c.generation = gen
		c.invalidateAllLocked()
	}
	c.mu.Unlock()
}

// InvalidateRow drops one cached row.
func (c *RowCache) InvalidateRow(rowIndex int) {
	c.mu.Lock()
	if rowIndex >= 0 && rowIndex < len(c.rows) && c.rows[rowIndex].valid {
		c.rows[rowIndex].valid = false
		c.invalidations.Add(1)
	}
	c.mu.Unlock()
}

// InvalidateAll drops every cached row.
func (c *RowCache) InvalidateAll() {
	c.mu.Lock()
	c.invalidateAllLocked()
	c.mu.Unlock()
}

func (c *RowCache) invalidateAllLocked() {
	for i := range c.rows {
		if c.rows[i].valid {
			c.rows[i].valid = false
			c.invalidations.Add(1)
		}
	}
}

// Resize changes the number of tracked rows, dropping all cached state.
func (c *RowCache) Resize(rows int) {
	if rows < 0 {
		rows = 0
	}
	c.mu.Lock()
	c.rows = make([]rowSlot, rows)
	c.mu.Unlock()
}

// Rows returns the number of tracked rows.
func (c *RowCache) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// Stats returns a snapshot of cache counters.
func (c *RowCache) Stats() RowStats {
	return RowStats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

// rowFingerprint hashes row content plus the attribute stream with
// FNV-1a. FNV is fast and distributes well over text; exactness is not
// required, only that unchanged rows hash identically and changes are
// overwhelmingly likely to differ.
func rowFingerprint(content string, attrs []CellAttrs) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))

	var buf [10]byte
	for i := range attrs {
		binary.LittleEndian.PutUint32(buf[0:4], attrs[i].Foreground)
		binary.LittleEndian.PutUint32(buf[4:8], attrs[i].Background)
		binary.LittleEndian.PutUint16(buf[8:10], uint16(attrs[i].Flags))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
