package text

// Direction is the writing direction of a text run.
type Direction uint8

const (
	DirectionLTR Direction = iota
	DirectionRTL
)

// ShapedGlyph is one positioned glyph produced by shaping.
// Positions are in pixels relative to the run origin; Cluster maps the
// glyph back to the byte index of the source text it came from. Font is
// the source the glyph index belongs to: rasterization must go through
// it, since fallback runs carry indices from a fallback face.
type ShapedGlyph struct {
	GlyphID  uint32
	Cluster  int
	X        float64
	Y        float64
	XAdvance float64
	YAdvance float64
	Font     *FontSource
}

// Shaper converts text runs into positioned glyph indices. Implementations
// handle ligatures, kerning and script-specific layout; the renderer treats
// them as a black box.
//
// MapFallback resolves font fallback for mixed-script text: it returns the
// byte length of the leading subrange that one font can render and the
// font to use for it. A nil resolved font means no font in the chain
// covers the subrange; the caller substitutes the replacement character.
type Shaper interface {
	Shape(text string, font *FontSource, locale string) ([]ShapedGlyph, error)
	MapFallback(text string, base *FontSource) (length int, resolved *FontSource)
}

// ShapeWithFallback shapes a whole row: it splits the text into
// direction runs, resolves font fallback per run through
// s.MapFallback, shapes each segment with its resolved font, and
// stitches the results back together with row-global clusters and pen
// positions. Segments no font covers are shaped with the base font and
// come out as .notdef glyphs for the renderer's replacement handling.
func ShapeWithFallback(s Shaper, base *FontSource, content string) ([]ShapedGlyph, error) {
	var (
		out  []ShapedGlyph
		xOff float64
	)
	for _, run := range SplitDirections(content) {
		seg := run.Start
		for seg < run.End {
			length, resolved := s.MapFallback(content[seg:run.End], base)
			if length <= 0 {
				length = run.End - seg
			}
			if resolved == nil {
				resolved = base
			}

			glyphs, err := s.Shape(content[seg:seg+length], resolved, "")
			if err != nil {
				return nil, err
			}
			var adv float64
			for i := range glyphs {
				glyphs[i].Cluster += seg
				glyphs[i].X += xOff
				adv += glyphs[i].XAdvance
			}
			out = append(out, glyphs...)
			xOff += adv
			seg += length
		}
	}
	return out, nil
}
