package atlas

import (
	"errors"
	"math/rand"
	"testing"
)

func glyphKey(i uint32) GlyphKey {
	return GlyphKey{FontFace: 1, GlyphIndex: i, ScaleX: 1, ScaleY: 1}
}

type rect struct {
	x, y, w, h int
}

func overlaps(a, b rect) bool {
	return a.x < b.x+b.w && b.x < a.x+a.w && a.y < b.y+b.h && b.y < a.y+a.h
}

// Any sequence of insertions that individually fit must produce regions
// that never overlap and always lie within the texture bounds.
func TestAtlasPackingSafety(t *testing.T) {
	a := NewGlyphAtlas(Config{Width: 256, Height: 256, MaxDimension: 256, Padding: 1})
	rng := rand.New(rand.NewSource(42))

	var placed []rect
	for i := uint32(0); ; i++ {
		w := uint16(1 + rng.Intn(24))
		h := uint16(1 + rng.Intn(24))

		e, err := a.Insert(glyphKey(i), w, h, 0, 0)
		if errors.Is(err, ErrAtlasFull) {
			break
		}
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}

		r := rect{int(e.TexX), int(e.TexY), int(e.Width), int(e.Height)}
		if r.x+r.w > 256 || r.y+r.h > 256 {
			t.Fatalf("region %v exceeds 256x256 bounds", r)
		}
		for _, p := range placed {
			if overlaps(r, p) {
				t.Fatalf("region %v overlaps %v", r, p)
			}
		}
		placed = append(placed, r)
	}

	if len(placed) < 50 {
		t.Fatalf("only %d regions placed before full, packing is broken", len(placed))
	}
}

func TestAtlasLookupHitMiss(t *testing.T) {
	a := NewGlyphAtlas(DefaultConfig())

	if _, ok := a.Lookup(glyphKey(7)); ok {
		t.Fatal("lookup hit on empty atlas")
	}

	want, err := a.Insert(glyphKey(7), 8, 12, -1, 2)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok := a.Lookup(glyphKey(7))
	if !ok {
		t.Fatal("lookup missed an inserted key")
	}
	if got != want {
		t.Errorf("Lookup = %+v, want %+v", got, want)
	}

	st := a.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("stats hits=%d misses=%d, want 1/1", st.Hits, st.Misses)
	}
}

func TestAtlasDuplicateInsert(t *testing.T) {
	a := NewGlyphAtlas(DefaultConfig())

	first, err := a.Insert(glyphKey(1), 8, 8, 0, 0)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	second, err := a.Insert(glyphKey(1), 8, 8, 0, 0)
	if err != nil {
		t.Fatalf("duplicate Insert: %v", err)
	}
	if first != second {
		t.Errorf("duplicate insert returned %+v, want original %+v", second, first)
	}
	if got := a.Stats().Entries; got != 1 {
		t.Errorf("Entries = %d, want 1", got)
	}
}

// After Reset, allocation succeeds again from a clean packer state.
func TestAtlasResetRoundTrip(t *testing.T) {
	a := NewGlyphAtlas(Config{Width: 16, Height: 16, MaxDimension: 16, Padding: 0})

	for i := uint32(0); i < 4; i++ {
		if _, err := a.Insert(glyphKey(i), 8, 8, 0, 0); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	if _, err := a.Insert(glyphKey(99), 8, 8, 0, 0); !errors.Is(err, ErrAtlasFull) {
		t.Fatalf("Insert on full atlas: err = %v, want ErrAtlasFull", err)
	}

	a.Reset()

	if got := a.Stats().Entries; got != 0 {
		t.Fatalf("Entries = %d after Reset, want 0", got)
	}
	for i := uint32(0); i < 4; i++ {
		if _, err := a.Insert(glyphKey(100+i), 8, 8, 0, 0); err != nil {
			t.Fatalf("Insert after Reset: %v", err)
		}
	}
}

// Five unit-size glyphs fill an atlas with room for exactly five; the
// sixth triggers a reset-and-grow and then succeeds.
func TestAtlasHelloScenario(t *testing.T) {
	a := NewGlyphAtlas(Config{Width: 5, Height: 1, MaxDimension: 16, Padding: 0})

	var placed []rect
	for i := uint32(0); i < 5; i++ { // H e l l o → 5 distinct keys
		e, err := a.Insert(glyphKey(i), 1, 1, 0, 0)
		if err != nil {
			t.Fatalf("glyph %d: %v", i, err)
		}
		r := rect{int(e.TexX), int(e.TexY), 1, 1}
		for _, p := range placed {
			if overlaps(r, p) {
				t.Fatalf("glyph %d at %v overlaps %v", i, r, p)
			}
		}
		placed = append(placed, r)
	}

	if _, err := a.Insert(glyphKey(5), 1, 1, 0, 0); !errors.Is(err, ErrAtlasFull) {
		t.Fatalf("sixth insert: err = %v, want ErrAtlasFull", err)
	}

	gen := a.Generation()
	e, err := a.InsertOrGrow(glyphKey(5), 1, 1, 0, 0)
	if err != nil {
		t.Fatalf("InsertOrGrow: %v", err)
	}
	if !e.Occupied {
		t.Error("entry not marked occupied")
	}
	if a.Generation() == gen {
		t.Error("generation did not advance across a grow")
	}
	w, h := a.Size()
	if w <= 5 && h <= 1 {
		t.Errorf("atlas did not grow, size %dx%d", w, h)
	}
}

func TestAtlasGrowCapsAtMaxDimension(t *testing.T) {
	a := NewGlyphAtlas(Config{Width: 4, Height: 4, MaxDimension: 8, Padding: 0})

	if !a.Grow() {
		t.Fatal("first grow failed below the cap")
	}
	w, h := a.Size()
	if w != 8 || h != 8 {
		t.Fatalf("size after grow = %dx%d, want 8x8", w, h)
	}
	if a.Grow() {
		t.Error("grow succeeded at maximum dimensions")
	}

	// A glyph wider than the cap can never be placed.
	if _, err := a.InsertOrGrow(glyphKey(1), 9, 1, 0, 0); !errors.Is(err, ErrGlyphTooLarge) {
		t.Errorf("oversize insert: err = %v, want ErrGlyphTooLarge", err)
	}
}

func TestAtlasInsertOrGrowRetriesAfterResetAtMax(t *testing.T) {
	a := NewGlyphAtlas(Config{Width: 8, Height: 8, MaxDimension: 8, Padding: 0})

	if _, err := a.Insert(glyphKey(0), 8, 8, 0, 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// Atlas is full and already at max size: InsertOrGrow must still
	// succeed by resetting and reusing the freed area.
	if _, err := a.InsertOrGrow(glyphKey(1), 8, 8, 0, 0); err != nil {
		t.Fatalf("InsertOrGrow at max dimensions: %v", err)
	}
	if _, ok := a.Lookup(glyphKey(0)); ok {
		t.Error("stale entry survived the reset")
	}
}

func TestAtlasClose(t *testing.T) {
	a := NewGlyphAtlas(DefaultConfig())
	if _, err := a.Insert(glyphKey(0), 4, 4, 0, 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	a.Close()

	if _, err := a.Insert(glyphKey(1), 4, 4, 0, 0); !errors.Is(err, ErrAtlasClosed) {
		t.Errorf("Insert after Close: err = %v, want ErrAtlasClosed", err)
	}
	// Lookups keep working so an in-flight frame can finish.
	if _, ok := a.Lookup(glyphKey(0)); !ok {
		t.Error("lookup failed after Close")
	}
}
