package text

import (
	"errors"
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Rasterization errors.
var (
	// ErrGlyphNotFound is returned when the font has no outline for the
	// requested glyph index. Preload skips these; the row builder
	// substitutes the replacement character instead.
	ErrGlyphNotFound = errors.New("text: glyph not found in font")
)

// GlyphImage is one rasterized glyph: an alpha mask plus the positioning
// information the atlas needs.
type GlyphImage struct {
	// Mask is the grayscale coverage of the glyph shape, with bounds
	// starting at (0,0).
	Mask *image.Alpha

	// Bounds is the ink box relative to the glyph origin (baseline at
	// the left edge). Mask pixel (x,y) covers origin-relative pixel
	// (Bounds.Min.X+x, Bounds.Min.Y+y).
	Bounds image.Rectangle

	// Advance is the pen advance in pixels.
	Advance float64
}

// Rasterize renders one glyph of the font to an alpha mask at the given
// pixel size and DPI. The index is a font glyph index, the same space
// the shaper's GlyphIDs live in, NOT a code point; resolve code points
// through FontSource.GlyphIndex first.
//
// The outline is loaded via sfnt.LoadGlyph and filled with
// x/image/vector. sfnt.Buffer is not safe for concurrent use and is
// cheap, so each call uses its own; the parsed sfnt.Font behind it is
// cached on the FontSource.
func Rasterize(source *FontSource, glyphIndex uint32, sizePx, dpi float64) (*GlyphImage, error) {
	if source == nil {
		return nil, ErrNoFont
	}
	sf, err := source.rasterFont()
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 72
	}
	if glyphIndex > 0xFFFF || int(glyphIndex) >= sf.NumGlyphs() {
		return nil, ErrGlyphNotFound
	}

	gi := sfnt.GlyphIndex(glyphIndex)
	ppem := fixed.Int26_6(sizePx * dpi / 72 * 64)

	var buf sfnt.Buffer
	bounds, advance, err := sf.GlyphBounds(&buf, gi, ppem, font.HintingNone)
	if err != nil {
		return nil, ErrGlyphNotFound
	}
	segments, err := sf.LoadGlyph(&buf, gi, ppem, nil)
	if err != nil {
		return nil, ErrGlyphNotFound
	}

	minX := bounds.Min.X.Floor()
	minY := bounds.Min.Y.Floor()
	maxX := bounds.Max.X.Ceil()
	maxY := bounds.Max.Y.Ceil()
	rect := image.Rect(minX, minY, maxX, maxY)

	w := rect.Dx()
	h := rect.Dy()
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if w > 0 && h > 0 && len(segments) > 0 {
		// Bias from glyph space (origin at the baseline) into rasterizer
		// space (ink box top-left at 0,0), in 26.6 fixed point.
		biasX := -fixed.Int26_6(minX << 6)
		biasY := -fixed.Int26_6(minY << 6)

		ras := &vector.Rasterizer{}
		ras.Reset(w, h)
		ras.DrawOp = draw.Src
		for _, seg := range segments {
			switch seg.Op {
			case sfnt.SegmentOpMoveTo:
				ras.MoveTo(
					float32(seg.Args[0].X+biasX)/64,
					float32(seg.Args[0].Y+biasY)/64,
				)
			case sfnt.SegmentOpLineTo:
				ras.LineTo(
					float32(seg.Args[0].X+biasX)/64,
					float32(seg.Args[0].Y+biasY)/64,
				)
			case sfnt.SegmentOpQuadTo:
				ras.QuadTo(
					float32(seg.Args[0].X+biasX)/64,
					float32(seg.Args[0].Y+biasY)/64,
					float32(seg.Args[1].X+biasX)/64,
					float32(seg.Args[1].Y+biasY)/64,
				)
			case sfnt.SegmentOpCubeTo:
				ras.CubeTo(
					float32(seg.Args[0].X+biasX)/64,
					float32(seg.Args[0].Y+biasY)/64,
					float32(seg.Args[1].X+biasX)/64,
					float32(seg.Args[1].Y+biasY)/64,
					float32(seg.Args[2].X+biasX)/64,
					float32(seg.Args[2].Y+biasY)/64,
				)
			}
		}
		ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	}

	return &GlyphImage{
		Mask:    mask,
		Bounds:  rect,
		Advance: fixedToFloat(advance),
	}, nil
}
