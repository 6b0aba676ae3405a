package render

import (
	"github.com/gogpu/termatlas/text"
)

// Generation is a monotonically increasing version counter on one group
// of settings. Renderer subsystems compare generations instead of deep
// comparing the fields they depend on.
type Generation uint32

// TargetSettings describes the render target and grid geometry.
type TargetSettings struct {
	PixelWidth  uint32
	PixelHeight uint32
	CellWidth   uint16
	CellHeight  uint16
	Rows        int
	Cols        int
}

// FontSettings describes the active font configuration.
type FontSettings struct {
	Family    string
	SizePx    float64
	DPI       float64
	ClearType bool // subpixel text when the backend supports it
}

// CursorStyle selects the cursor shape.
type CursorStyle uint8

const (
	CursorBlock CursorStyle = iota
	CursorUnderline
	CursorBar
)

// CursorSettings describes cursor rendering.
type CursorSettings struct {
	Style CursorStyle
	Color uint32 // RGBA
}

// RuntimeFlags carries stateful vendor and acceleration toggles. They
// are plain booleans here; acting on them is the host's concern.
type RuntimeFlags struct {
	LowLatency  bool // vendor low-latency mode requested
	AsyncLoader bool // async byte-loader path enabled
}

// MiscSettings collects the remaining renderer configuration.
type MiscSettings struct {
	BackgroundColor  uint32 // RGBA
	CustomShaderTime bool   // a time-based custom effect is active
	Flags            RuntimeFlags
}

// Settings is a versioned immutable snapshot of renderer configuration.
// Each field group carries a generation counter, so "did this
// subsystem's inputs change since last frame" is a single integer
// comparison. Mutate via the With* methods, which copy the snapshot and
// bump the matching generation.
type Settings struct {
	Target TargetSettings
	Font   FontSettings
	Cursor CursorSettings
	Misc   MiscSettings

	TargetGen Generation
	FontGen   Generation
	CursorGen Generation
	MiscGen   Generation
}

// WithTarget returns a snapshot with new target settings.
func (s Settings) WithTarget(t TargetSettings) Settings {
	s.Target = t
	s.TargetGen++
	return s
}

// WithFont returns a snapshot with new font settings.
func (s Settings) WithFont(f FontSettings) Settings {
	s.Font = f
	s.FontGen++
	return s
}

// WithCursor returns a snapshot with new cursor settings.
func (s Settings) WithCursor(c CursorSettings) Settings {
	s.Cursor = c
	s.CursorGen++
	return s
}

// WithMisc returns a snapshot with new misc settings.
func (s Settings) WithMisc(m MiscSettings) Settings {
	s.Misc = m
	s.MiscGen++
	return s
}

// SettingsDiff reports which groups changed between two snapshots.
type SettingsDiff struct {
	Target bool
	Font   bool
	Cursor bool
	Misc   bool
}

// Diff compares generation counters against a previous snapshot.
func (s Settings) Diff(prev Settings) SettingsDiff {
	return SettingsDiff{
		Target: s.TargetGen != prev.TargetGen,
		Font:   s.FontGen != prev.FontGen,
		Cursor: s.CursorGen != prev.CursorGen,
		Misc:   s.MiscGen != prev.MiscGen,
	}
}

// Any reports whether anything changed.
func (d SettingsDiff) Any() bool {
	return d.Target || d.Font || d.Cursor || d.Misc
}

// Row is one terminal row's content as the host submits it: the cell
// text plus per-cell attributes. Shaping and caching happen inside the
// renderer.
type Row struct {
	Index   int
	Content string
	Attrs   []text.CellAttrs
}

// CursorRect places the cursor in cell coordinates.
type CursorRect struct {
	X, Y          int
	Width, Height int
	Visible       bool
}

// Payload is the per-frame input to a renderer: the settings snapshot,
// the current row list, and the cursor.
type Payload struct {
	Settings Settings
	Rows     []Row
	Cursor   CursorRect

	// DirtyRows, when non-nil, limits re-shaping to the listed row
	// indices; nil means the host does not track dirtiness and every
	// row is checked against the shaping cache.
	DirtyRows []int
}
