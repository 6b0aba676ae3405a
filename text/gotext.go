package text

import (
	"errors"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// Shaping errors.
var (
	// ErrNoFont is returned when Shape is called without a usable font.
	ErrNoFont = errors.New("text: no font available for shaping")
)

// GoTextShaper shapes text with go-text/typesetting's HarfBuzz
// implementation. It supports ligature substitution, kerning pairs,
// right-to-left text and complex scripts.
//
// GoTextShaper is safe for concurrent use. Parsed gtfont.Font objects are
// thread-safe and cached on the FontSource; lightweight gtfont.Face
// instances are created per Shape call (gtfont.Face is NOT safe for
// concurrent use). HarfbuzzShaper instances are pooled via sync.Pool
// since they also are not concurrent-safe.
type GoTextShaper struct {
	// shaperPool pools HarfbuzzShaper instances. HarfbuzzShaper has
	// internal mutable state (buffer), but reusing across sequential
	// calls avoids reallocating it.
	shaperPool sync.Pool

	// sizePx is the font size in pixels. A terminal renders at one
	// size; double-width/height modes scale the resulting quads, not
	// the shaping input.
	sizePx float64
}

// NewGoTextShaper creates a shaper producing glyphs at the given pixel
// size.
func NewGoTextShaper(sizePx float64) *GoTextShaper {
	if sizePx <= 0 {
		sizePx = 16
	}
	return &GoTextShaper{
		shaperPool: sync.Pool{
			New: func() any {
				return &shaping.HarfbuzzShaper{}
			},
		},
		sizePx: sizePx,
	}
}

// Shape implements Shaper. The locale selects language-specific OpenType
// behavior; an empty locale defaults to "en".
func (s *GoTextShaper) Shape(text string, font *FontSource, locale string) ([]ShapedGlyph, error) {
	if text == "" {
		return nil, nil
	}
	if font == nil {
		return nil, ErrNoFont
	}

	gt, err := font.shapingFont()
	if err != nil {
		return nil, err
	}

	// gtfont.Face is NOT safe for concurrent use, so each Shape call
	// gets its own. gtfont.NewFace is cheap; it wraps the thread-safe
	// *Font and initializes glyph caches.
	face := gtfont.NewFace(gt)

	runes := []rune(text)
	dir := mapDirection(DetectDirection(text))
	if locale == "" {
		locale = "en"
	}

	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      face,
		Size:      floatToFixed(s.sizePx),
		Script:    detectScript(runes),
		Language:  language.NewLanguage(locale),
	}

	hb := s.shaperPool.Get().(*shaping.HarfbuzzShaper)
	output := hb.Shape(input)
	s.shaperPool.Put(hb)

	glyphs := convertGlyphs(output.Glyphs, dir)
	for i := range glyphs {
		glyphs[i].Font = font
	}
	return glyphs, nil
}

// MapFallback implements Shaper. It walks the leading runes of text,
// resolving each against the base font and then its fallback chain, and
// returns the byte length of the longest prefix a single font covers
// together with that font. Runes no font covers resolve to a nil font so
// the caller can substitute the replacement character for them.
func (s *GoTextShaper) MapFallback(text string, base *FontSource) (int, *FontSource) {
	if text == "" || base == nil {
		return len(text), base
	}

	var (
		resolved *FontSource
		length   int
		first    = true
	)
	for _, r := range text {
		f := resolveFont(r, base)
		if first {
			resolved = f
			first = false
		} else if f != resolved {
			break
		}
		length += len(string(r))
	}
	return length, resolved
}

// resolveFont returns the first font in base's chain covering r, or nil.
func resolveFont(r rune, base *FontSource) *FontSource {
	if base.HasGlyph(r) {
		return base
	}
	for _, fb := range base.Fallbacks() {
		if fb.HasGlyph(r) {
			return fb
		}
	}
	return nil
}

// mapDirection converts our Direction to go-text's di.Direction.
func mapDirection(d Direction) di.Direction {
	if d == DirectionRTL {
		return di.DirectionRTL
	}
	return di.DirectionLTR
}

// detectScript inspects the runes and returns the script of the first
// non-space character. Mixed-script rows are split by MapFallback before
// shaping, so one script per run is enough here.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

// floatToFixed converts a pixel size to fixed.Int26_6 (6 fractional bits).
func floatToFixed(size float64) fixed.Int26_6 {
	return fixed.Int26_6(size * 64)
}

// fixedToFloat converts a fixed.Int26_6 value to float64.
func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}

// convertGlyphs converts go-text output glyphs to ShapedGlyphs,
// accumulating the pen position across advances.
func convertGlyphs(glyphs []shaping.Glyph, dir di.Direction) []ShapedGlyph {
	if len(glyphs) == 0 {
		return nil
	}

	result := make([]ShapedGlyph, len(glyphs))

	var x, y float64
	for i, g := range glyphs {
		result[i] = ShapedGlyph{
			GlyphID: uint32(g.GlyphID),
			Cluster: g.TextIndex(),
			X:       x + fixedToFloat(g.XOffset),
			Y:       y + fixedToFloat(g.YOffset),
		}

		adv := fixedToFloat(g.Advance)
		if dir.IsVertical() {
			result[i].YAdvance = adv
			y += adv
		} else {
			result[i].XAdvance = adv
			x += adv
		}
	}
	return result
}
