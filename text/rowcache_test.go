package text

import (
	"errors"
	"testing"
)

// countingShaper returns one glyph per rune and counts invocations.
func countingShaper(calls *int) ShapeRowFunc {
	return func(content string, _ []CellAttrs) ([]ShapedGlyph, error) {
		*calls++
		glyphs := make([]ShapedGlyph, 0, len(content))
		x := 0.0
		for _, r := range content {
			glyphs = append(glyphs, ShapedGlyph{GlyphID: uint32(r), X: x, XAdvance: 8})
			x += 8
		}
		return glyphs, nil
	}
}

func TestRowCacheHitOnUnchangedContent(t *testing.T) {
	calls := 0
	c := NewRowCache(4, countingShaper(&calls))

	first, err := c.GetOrShape(0, "hello", nil)
	if err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}
	second, err := c.GetOrShape(0, "hello", nil)
	if err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}

	if calls != 1 {
		t.Errorf("shaper ran %d times, want 1", calls)
	}
	if len(first.Glyphs) != 5 || len(second.Glyphs) != 5 {
		t.Errorf("glyph counts %d/%d, want 5/5", len(first.Glyphs), len(second.Glyphs))
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("stats hits=%d misses=%d, want 1/1", st.Hits, st.Misses)
	}
}

func TestRowCacheReshapesOnContentChange(t *testing.T) {
	calls := 0
	c := NewRowCache(4, countingShaper(&calls))

	if _, err := c.GetOrShape(1, "hello", nil); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}
	if _, err := c.GetOrShape(1, "hellp", nil); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}

	if calls != 2 {
		t.Errorf("shaper ran %d times, want 2 (content changed)", calls)
	}
}

// A single changed cell attribute invalidates the whole row.
func TestRowCacheReshapesOnAttrChange(t *testing.T) {
	calls := 0
	c := NewRowCache(4, countingShaper(&calls))

	plain := []CellAttrs{{Foreground: 0xFFFFFFFF}}
	bold := []CellAttrs{{Foreground: 0xFFFFFFFF, Flags: AttrBold}}

	if _, err := c.GetOrShape(0, "x", plain); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}
	if _, err := c.GetOrShape(0, "x", bold); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}

	if calls != 2 {
		t.Errorf("shaper ran %d times, want 2 (attrs changed)", calls)
	}
}

// Advancing the atlas generation invalidates every cached row in lockstep.
func TestRowCacheAtlasGenerationInvalidation(t *testing.T) {
	calls := 0
	c := NewRowCache(2, countingShaper(&calls))

	if _, err := c.GetOrShape(0, "a", nil); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}
	if _, err := c.GetOrShape(1, "b", nil); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}

	c.SetAtlasGeneration(1)

	row, err := c.GetOrShape(0, "a", nil)
	if err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}
	if calls != 3 {
		t.Errorf("shaper ran %d times, want 3 (generation advanced)", calls)
	}
	if row.AtlasGeneration != 1 {
		t.Errorf("row generation = %d, want 1", row.AtlasGeneration)
	}

	// Same generation again: no further invalidation.
	c.SetAtlasGeneration(1)
	if _, err := c.GetOrShape(0, "a", nil); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}
	if calls != 3 {
		t.Errorf("shaper ran %d times after no-op generation set, want 3", calls)
	}
}

func TestRowCacheInvalidateRow(t *testing.T) {
	calls := 0
	c := NewRowCache(2, countingShaper(&calls))

	if _, err := c.GetOrShape(0, "a", nil); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}
	c.InvalidateRow(0)
	if _, err := c.GetOrShape(0, "a", nil); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}

	if calls != 2 {
		t.Errorf("shaper ran %d times, want 2", calls)
	}
	if got := c.Stats().Invalidations; got != 1 {
		t.Errorf("Invalidations = %d, want 1", got)
	}
}

func TestRowCacheResizeDropsState(t *testing.T) {
	calls := 0
	c := NewRowCache(2, countingShaper(&calls))

	if _, err := c.GetOrShape(0, "a", nil); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}
	c.Resize(8)
	if c.Rows() != 8 {
		t.Fatalf("Rows = %d, want 8", c.Rows())
	}
	if _, err := c.GetOrShape(0, "a", nil); err != nil {
		t.Fatalf("GetOrShape: %v", err)
	}
	if calls != 2 {
		t.Errorf("shaper ran %d times, want 2 (resize dropped cache)", calls)
	}
}

func TestRowCacheShapeErrorNotCached(t *testing.T) {
	fail := errors.New("shaping backend unavailable")
	failing := true
	calls := 0
	c := NewRowCache(1, func(content string, _ []CellAttrs) ([]ShapedGlyph, error) {
		calls++
		if failing {
			return nil, fail
		}
		return []ShapedGlyph{{GlyphID: 1}}, nil
	})

	if _, err := c.GetOrShape(0, "a", nil); !errors.Is(err, fail) {
		t.Fatalf("err = %v, want shaping failure", err)
	}

	failing = false
	row, err := c.GetOrShape(0, "a", nil)
	if err != nil {
		t.Fatalf("GetOrShape after recovery: %v", err)
	}
	if len(row.Glyphs) != 1 || calls != 2 {
		t.Errorf("recovery row glyphs=%d calls=%d, want 1/2", len(row.Glyphs), calls)
	}
}

func TestRowFingerprintSensitivity(t *testing.T) {
	attrs := []CellAttrs{{Foreground: 1, Background: 2}}

	base := rowFingerprint("abc", attrs)

	if rowFingerprint("abd", attrs) == base {
		t.Error("fingerprint ignored content change")
	}
	if rowFingerprint("abc", []CellAttrs{{Foreground: 1, Background: 3}}) == base {
		t.Error("fingerprint ignored attribute change")
	}
	if rowFingerprint("abc", attrs) != base {
		t.Error("fingerprint not stable for identical input")
	}
}
