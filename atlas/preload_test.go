package atlas

import "testing"

func TestPreloadRunes(t *testing.T) {
	runes := PreloadRunes()

	seen := make(map[rune]bool, len(runes))
	for _, r := range runes {
		if seen[r] {
			t.Errorf("duplicate preload rune %U", r)
		}
		seen[r] = true
	}

	// Printable ASCII is always present.
	for r := rune(0x20); r <= 0x7E; r++ {
		if !seen[r] {
			t.Fatalf("preload set missing %q", r)
		}
	}
	// A couple of curated symbols.
	for _, r := range []rune{0xE0B0, 0xF07B, 0x2026} {
		if !seen[r] {
			t.Errorf("preload set missing %U", r)
		}
	}
}

// Missing glyphs are skipped without error; the rest still load.
func TestPreloadSkipsMissingGlyphs(t *testing.T) {
	var attempted int
	loaded := Preload(func(r rune) bool {
		attempted++
		return r < 0x80 // pretend the font has no symbol glyphs
	})

	if attempted != len(PreloadRunes()) {
		t.Errorf("attempted %d runes, want %d", attempted, len(PreloadRunes()))
	}
	if loaded != 95 {
		t.Errorf("loaded %d glyphs, want 95 (printable ASCII)", loaded)
	}
}
