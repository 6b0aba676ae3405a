// Package text provides the shaping and rasterization collaborators of
// the renderer: font sources with fallback chains, a HarfBuzz-backed
// shaper, a CPU glyph rasterizer, and the row-level shaping cache.
package text

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"

	gtfont "github.com/go-text/typesetting/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Font errors.
var (
	// ErrInvalidFont is returned when font data cannot be parsed.
	ErrInvalidFont = errors.New("text: invalid font data")
)

// FontID is an opaque handle identifying one loaded font source.
type FontID uint64

var nextFontID atomic.Uint64

// FontSource wraps raw font bytes plus lazily parsed representations for
// the shaping (go-text) and rasterization (x/image) paths. The parsed
// forms are cached on first use; both are read-only and safe to share
// across goroutines. A source may carry an ordered fallback chain
// consulted when it lacks a glyph for a code point.
type FontSource struct {
	id   FontID
	data []byte

	mu        sync.RWMutex
	gtFont    *gtfont.Font
	sfntFont  *sfnt.Font
	fallbacks []*FontSource
}

// NewFontSource creates a font source from raw TTF/OTF bytes. The
// shaping form is parsed up front so unusable data fails here rather
// than mid-frame; the raster form stays lazy.
func NewFontSource(data []byte) (*FontSource, error) {
	f := &FontSource{
		id:   FontID(nextFontID.Add(1)),
		data: data,
	}
	if _, err := f.shapingFont(); err != nil {
		return nil, err
	}
	return f, nil
}

// ID returns the source's opaque handle.
func (f *FontSource) ID() FontID { return f.id }

// AddFallback appends a font consulted when this source lacks a glyph.
func (f *FontSource) AddFallback(fb *FontSource) {
	f.mu.Lock()
	f.fallbacks = append(f.fallbacks, fb)
	f.mu.Unlock()
}

// Fallbacks returns the current fallback chain.
func (f *FontSource) Fallbacks() []*FontSource {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fallbacks
}

// shapingFont returns the parsed go-text font, parsing on first use.
// gtfont.Font is read-only and safe for concurrent use, unlike
// gtfont.Face, so only the Font is cached.
func (f *FontSource) shapingFont() (*gtfont.Font, error) {
	f.mu.RLock()
	if f.gtFont != nil {
		f.mu.RUnlock()
		return f.gtFont, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gtFont != nil {
		return f.gtFont, nil
	}

	face, err := gtfont.ParseTTF(bytes.NewReader(f.data))
	if err != nil {
		return nil, ErrInvalidFont
	}
	f.gtFont = face.Font
	return f.gtFont, nil
}

// rasterFont returns the parsed sfnt font for the x/image raster path.
func (f *FontSource) rasterFont() (*sfnt.Font, error) {
	f.mu.RLock()
	if f.sfntFont != nil {
		f.mu.RUnlock()
		return f.sfntFont, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sfntFont != nil {
		return f.sfntFont, nil
	}

	parsed, err := opentype.Parse(f.data)
	if err != nil {
		return nil, ErrInvalidFont
	}
	f.sfntFont = parsed
	return f.sfntFont, nil
}

// HasGlyph reports whether this source (ignoring fallbacks) carries a
// glyph for the code point.
func (f *FontSource) HasGlyph(r rune) bool {
	_, ok := f.GlyphIndex(r)
	return ok
}

// GlyphIndex resolves a code point to this source's font glyph index,
// the same ID space the shaper emits. Returns false when the cmap has
// no entry for the code point.
func (f *FontSource) GlyphIndex(r rune) (uint32, bool) {
	ft, err := f.shapingFont()
	if err != nil {
		return 0, false
	}
	// gtfont.Face is cheap to create and not concurrent-safe, so a
	// transient one is used per query.
	gid, ok := gtfont.NewFace(ft).NominalGlyph(r)
	return uint32(gid), ok
}
