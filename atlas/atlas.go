// Package atlas maintains rasterized glyph bitmaps inside large shared
// textures and hands out stable sub-rectangle coordinates for them.
//
// Two bounding policies are provided. GlyphAtlas bounds texture area with
// shelf packing and reclaims space only through a full Reset (optionally
// growing the texture), which is the policy the steady-state renderer uses.
// BudgetCache bounds total rasterized bytes with LRU eviction and is used
// where a hard memory budget matters more than texture-update cost.
package atlas

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Atlas errors.
var (
	// ErrAtlasFull is returned when no shelf has room for the requested size.
	ErrAtlasFull = errors.New("atlas: texture atlas is full")

	// ErrGlyphTooLarge is returned when a glyph cannot fit even at the
	// maximum atlas dimensions.
	ErrGlyphTooLarge = errors.New("atlas: glyph exceeds maximum atlas dimensions")

	// ErrAtlasClosed is returned when operating on a closed atlas.
	ErrAtlasClosed = errors.New("atlas: atlas is closed")
)

// Default atlas settings.
const (
	// DefaultSize is the initial atlas dimension.
	DefaultSize = 1024

	// DefaultMaxDimension caps atlas growth. Matches the guaranteed
	// minimum 2D texture dimension of desktop GPUs.
	DefaultMaxDimension = 16384

	// DefaultPadding is the padding between glyphs, preventing bleed
	// when sampling with bilinear filtering.
	DefaultPadding = 1
)

// Variant selects the rasterization style a glyph was cached with.
// Glyphs rasterized with different variants never alias each other.
type Variant uint8

const (
	VariantGrayscale Variant = iota
	VariantClearType
	VariantBuiltin
)

// FontFaceID is an opaque handle identifying one loaded font face.
type FontFaceID uint64

// GlyphKey uniquely identifies one rasterized glyph instance at one
// scale and style. Immutable once created.
type GlyphKey struct {
	FontFace       FontFaceID
	GlyphIndex     uint32
	ScaleX         uint8 // horizontal rendition scale (double-width modes)
	ScaleY         uint8 // vertical rendition scale (double-height modes)
	ShadingVariant Variant
}

// AtlasEntry records where a glyph's bitmap lives inside the atlas texture.
//
// Entries are created on cache miss after rasterization and are never
// individually destroyed. Space is reclaimed only by a full Reset, after
// which every previously issued entry is stale; consumers detect this by
// comparing generations.
type AtlasEntry struct {
	Key      GlyphKey
	Occupied bool
	OffsetX  int16 // ink offset from the cell origin
	OffsetY  int16
	Width    uint16
	Height   uint16
	TexX     uint16 // top-left of the bitmap in the atlas texture
	TexY     uint16
}

// Config configures a GlyphAtlas.
type Config struct {
	// Width and Height are the initial texture dimensions.
	Width  int
	Height int

	// MaxDimension caps growth. Resets stop doubling once either
	// dimension reaches it.
	MaxDimension int

	// Padding is the gap between packed glyphs, in texels.
	Padding int
}

// DefaultConfig returns the default atlas configuration.
func DefaultConfig() Config {
	return Config{
		Width:        DefaultSize,
		Height:       DefaultSize,
		MaxDimension: DefaultMaxDimension,
		Padding:      DefaultPadding,
	}
}

// AtlasStats captures atlas cache counters.
type AtlasStats struct {
	Hits    uint64
	Misses  uint64
	Resets  uint64
	Grows   uint64
	Entries int
}

// GlyphAtlas maps GlyphKeys to packed texture regions.
//
// Lookups take a read lock only; insertions serialize behind a write lock
// because packing mutates shared shelf state. When packing fails the atlas
// is Reset: all entries are dropped, the texture optionally grows
// (doubling, capped at MaxDimension), and the generation advances so that
// every consumer holding texture coordinates re-requests them.
type GlyphAtlas struct {
	mu      sync.RWMutex
	entries map[GlyphKey]AtlasEntry
	packer  *ShelfAllocator
	width   int
	height  int
	maxDim  int
	padding int
	closed  bool

	generation atomic.Uint64

	hits   atomic.Uint64
	misses atomic.Uint64
	resets atomic.Uint64
	grows  atomic.Uint64
}

// NewGlyphAtlas creates an atlas with the given configuration.
// Zero-valued fields fall back to defaults.
func NewGlyphAtlas(cfg Config) *GlyphAtlas {
	def := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = def.MaxDimension
	}
	if cfg.Padding < 0 {
		cfg.Padding = def.Padding
	}
	if cfg.Width > cfg.MaxDimension {
		cfg.Width = cfg.MaxDimension
	}
	if cfg.Height > cfg.MaxDimension {
		cfg.Height = cfg.MaxDimension
	}

	return &GlyphAtlas{
		entries: make(map[GlyphKey]AtlasEntry, 256),
		packer:  NewShelfAllocator(cfg.Width, cfg.Height, cfg.Padding),
		width:   cfg.Width,
		height:  cfg.Height,
		maxDim:  cfg.MaxDimension,
		padding: cfg.Padding,
	}
}

// Lookup returns the cached entry for key, if present.
func (a *GlyphAtlas) Lookup(key GlyphKey) (AtlasEntry, bool) {
	a.mu.RLock()
	e, ok := a.entries[key]
	a.mu.RUnlock()

	if ok {
		a.hits.Add(1)
	} else {
		a.misses.Add(1)
	}
	return e, ok
}

// Insert packs a glyph bitmap of the given size and records it under key.
// The offset is the ink offset from the cell origin, carried through to
// the returned entry.
//
// Returns ErrAtlasFull when no shelf has room; the caller then triggers
// Grow (or Reset) and re-inserts everything it still needs.
func (a *GlyphAtlas) Insert(key GlyphKey, width, height uint16, offsetX, offsetY int16) (AtlasEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return AtlasEntry{}, ErrAtlasClosed
	}

	// Double insert of the same key returns the existing region.
	if e, ok := a.entries[key]; ok {
		return e, nil
	}

	x, y, ok := a.packer.Allocate(int(width), int(height))
	if !ok {
		return AtlasEntry{}, ErrAtlasFull
	}

	e := AtlasEntry{
		Key:      key,
		Occupied: true,
		OffsetX:  offsetX,
		OffsetY:  offsetY,
		Width:    width,
		Height:   height,
		TexX:     uint16(x),
		TexY:     uint16(y),
	}
	a.entries[key] = e
	return e, nil
}

// InsertOrGrow inserts like Insert, but on ErrAtlasFull performs
// Grow-and-retry until the glyph fits or the atlas has reached
// MaxDimension in both directions (then ErrGlyphTooLarge).
//
// Growth drops every existing entry: the caller must treat all previously
// returned entries as invalid, which it detects via Generation.
func (a *GlyphAtlas) InsertOrGrow(key GlyphKey, width, height uint16, offsetX, offsetY int16) (AtlasEntry, error) {
	atMax := false
	for {
		e, err := a.Insert(key, width, height, offsetX, offsetY)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, ErrAtlasFull) {
			return AtlasEntry{}, err
		}
		if atMax {
			// Already reset at maximum dimensions and the glyph still
			// does not fit in an empty atlas.
			return AtlasEntry{}, ErrGlyphTooLarge
		}
		atMax = !a.Grow()
	}
}

// Grow resets the atlas and doubles its dimensions, capped at
// MaxDimension. Returns false when the atlas is already at maximum size
// in both directions (in which case a Reset without growth still runs,
// so a retry can reuse the freed area).
func (a *GlyphAtlas) Grow() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	grew := false
	w, h := a.width, a.height
	if w < a.maxDim {
		w *= 2
		if w > a.maxDim {
			w = a.maxDim
		}
		grew = true
	}
	if h < a.maxDim {
		h *= 2
		if h > a.maxDim {
			h = a.maxDim
		}
		grew = true
	}

	a.width, a.height = w, h
	a.resetLocked()
	if grew {
		a.grows.Add(1)
	}
	return grew
}

// Reset drops all entries and restores a clean packer state at the
// current dimensions. The generation advances so stale coordinates are
// detectable.
func (a *GlyphAtlas) Reset() {
	a.mu.Lock()
	a.resetLocked()
	a.mu.Unlock()
}

func (a *GlyphAtlas) resetLocked() {
	clear(a.entries)
	a.packer.Resize(a.width, a.height)
	a.resets.Add(1)
	a.generation.Add(1)
}

// Generation returns the current atlas generation. It advances on every
// Reset or Grow; any cached texture coordinate tagged with an older
// generation must not be used.
func (a *GlyphAtlas) Generation() uint64 {
	return a.generation.Load()
}

// Size returns the current texture dimensions.
func (a *GlyphAtlas) Size() (width, height int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.width, a.height
}

// Utilization returns the packed fraction of the current texture.
func (a *GlyphAtlas) Utilization() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.packer.Utilization()
}

// Stats returns a snapshot of atlas counters.
func (a *GlyphAtlas) Stats() AtlasStats {
	a.mu.RLock()
	n := len(a.entries)
	a.mu.RUnlock()

	return AtlasStats{
		Hits:    a.hits.Load(),
		Misses:  a.misses.Load(),
		Resets:  a.resets.Load(),
		Grows:   a.grows.Load(),
		Entries: n,
	}
}

// Close marks the atlas closed. Further insertions fail with
// ErrAtlasClosed; lookups keep working so an in-flight frame can finish.
func (a *GlyphAtlas) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}
