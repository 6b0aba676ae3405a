package atlas

// preloadSymbols are code points beyond printable ASCII that terminals
// hit often enough to warm eagerly: typographic punctuation, a few
// geometric shapes, and the powerline/devicon glyphs patched fonts carry.
var preloadSymbols = []rune{
	0x2013, // en dash
	0x2014, // em dash
	0x2026, // horizontal ellipsis
	0x2192, // rightwards arrow
	0x25CF, // black circle
	0xE0A0, // version control branch
	0xE0B0, // powerline right arrow
	0xE5FA, // devicon folder
	0xE702, // git logo
	0xF07B, // folder
	0xF15B, // file
}

// PreloadRunes returns the code points rasterized eagerly on a font or
// context change: printable ASCII plus a curated symbol set. Steady-state
// rendering rarely takes the miss path once these are resident.
func PreloadRunes() []rune {
	runes := make([]rune, 0, 95+len(preloadSymbols))
	for r := rune(0x20); r <= 0x7E; r++ {
		runes = append(runes, r)
	}
	runes = append(runes, preloadSymbols...)
	return runes
}

// PreloadFunc rasterizes and caches one code point, reporting whether the
// active font (or its fallbacks) had a glyph for it.
type PreloadFunc func(r rune) bool

// Preload warms the cache with the standard preload set. Code points the
// font cannot supply are skipped silently, since fallback fonts rarely
// carry every candidate. Returns the number of glyphs loaded.
func Preload(fn PreloadFunc) int {
	loaded := 0
	for _, r := range PreloadRunes() {
		if fn(r) {
			loaded++
		}
	}
	return loaded
}
