// Package software provides the CPU fallback backend. It drives the same
// pipeline as the GPU backends (shaping cache, glyph atlas, instance
// batching, frame scheduling) but executes the draw loop on the CPU
// into an RGBA pixmap. It doubles as the correctness reference in tests.
package software

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/gogpu/termatlas/atlas"
	"github.com/gogpu/termatlas/backend"
	"github.com/gogpu/termatlas/render"
	"github.com/gogpu/termatlas/text"
)

func init() {
	backend.Register(backend.BackendSoftware, func() backend.Renderer {
		return New()
	})
}

// Renderer is the software backend.
type Renderer struct {
	mu          sync.Mutex
	initialized bool

	settings render.Settings
	havePrev bool

	font   *text.FontSource // optional; nil renders builtin block glyphs
	shaper text.Shaper

	glyphs   *atlas.GlyphAtlas
	masks    map[atlas.GlyphKey][]byte // CPU-side atlas storage, coverage per texel
	rowCache *text.RowCache
	batcher  *render.Batcher

	scheduler *render.FrameScheduler
	queue     *cpuQueue

	// pixmap is the RGBA render target, row-major, 4 bytes per pixel.
	pixmap []byte
	width  int
	height int

	continuous bool
}

// New creates an uninitialized software renderer.
func New() *Renderer {
	return &Renderer{
		masks: make(map[atlas.GlyphKey][]byte),
	}
}

// Name implements backend.Renderer.
func (r *Renderer) Name() string { return backend.BackendSoftware }

// SetFont supplies a real font for glyph rasterization. Without one the
// backend renders builtin block glyphs, which is enough for the GPU
// backends' fallback duty and for tests.
func (r *Renderer) SetFont(f *text.FontSource) {
	r.mu.Lock()
	r.font = f
	r.mu.Unlock()
}

// Init implements backend.Renderer. The software backend ignores the
// device handle (a NullDeviceHandle is expected) and builds its CPU
// stand-ins for the GPU objects: a CPU fence per queue and a trivial
// presenter.
func (r *Renderer) Init(_ render.DeviceHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return nil
	}

	r.glyphs = atlas.NewGlyphAtlas(atlas.DefaultConfig())
	r.batcher = render.NewBatcher()
	r.rowCache = text.NewRowCache(0, r.shapeRow)
	r.queue = &cpuQueue{}

	var cfg render.SchedulerConfig
	cfg.Graphics = r.queue
	cfg.GraphicsFence = render.NewCPUFence()
	cfg.Present = &cpuPresenter{}
	for i := 0; i < render.FrameCount; i++ {
		cfg.Allocators[i] = &cpuAllocator{}
	}

	sched, err := render.NewFrameScheduler(cfg)
	if err != nil {
		return fmt.Errorf("software: %w", err)
	}
	r.scheduler = sched
	r.initialized = true
	return nil
}

// Render implements backend.Renderer.
func (r *Renderer) Render(payload *render.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return backend.ErrNotInitialized
	}
	if payload == nil {
		return errors.New("software: nil payload")
	}

	r.applySettings(payload.Settings)

	if err := r.scheduler.BeginFrame(); err != nil {
		return err
	}

	r.batcher.Reset()
	r.emitBackgrounds(payload)
	if err := r.emitGlyphs(payload); err != nil {
		return err
	}
	r.emitCursor(payload)

	// "Record" the draw loop: the CPU queue runs it at Submit, the way
	// a GPU consumes a command list at execute.
	instances := r.batcher.Instances()
	batches := r.batcher.Batches()
	r.queue.record(func() {
		r.clear(payload.Settings.Misc.BackgroundColor)
		for _, batch := range batches {
			run := instances[batch.InstanceOffset : batch.InstanceOffset+batch.InstanceCount]
			for i := range run {
				r.drawInstance(&run[i])
			}
		}
	})

	if err := r.scheduler.Execute(); err != nil {
		return err
	}
	if err := r.scheduler.Present(); err != nil {
		return err
	}
	return r.scheduler.MoveToNextFrame()
}

// applySettings reacts to generation changes: target changes resize the
// pixmap and row cache, font changes reset the atlas and re-warm it.
func (r *Renderer) applySettings(s render.Settings) {
	diff := s.Diff(r.settings)
	if !r.havePrev {
		diff = render.SettingsDiff{Target: true, Font: true, Cursor: true, Misc: true}
	}

	if diff.Target {
		r.width = int(s.Target.PixelWidth)
		r.height = int(s.Target.PixelHeight)
		r.pixmap = make([]byte, r.width*r.height*4)
		r.rowCache.Resize(s.Target.Rows)
	}
	if diff.Font {
		clear(r.masks)
		r.glyphs.Reset()
		r.shaper = text.NewGoTextShaper(s.Font.SizePx)
		r.rowCache.SetAtlasGeneration(r.glyphs.Generation())
		r.rowCache.InvalidateAll()
		r.preload(s)
	}
	if diff.Misc {
		r.continuous = s.Misc.CustomShaderTime
	}

	r.settings = s
	r.havePrev = true
}

// preload warms the atlas with the standard preload set. Glyphs the font
// cannot supply are skipped silently.
func (r *Renderer) preload(s render.Settings) {
	if r.font == nil {
		return
	}
	atlas.Preload(func(cp rune) bool {
		// Atlas keys live in glyph-index space, so the code point goes
		// through the cmap first.
		gid, ok := r.font.GlyphIndex(cp)
		if !ok {
			return false
		}
		img, err := text.Rasterize(r.font, gid, s.Font.SizePx, s.Font.DPI)
		if err != nil {
			return false
		}
		key := atlas.GlyphKey{
			FontFace:   atlas.FontFaceID(r.font.ID()),
			GlyphIndex: gid,
			ScaleX:     1,
			ScaleY:     1,
		}
		_, err = r.insertMask(key, img)
		return err == nil
	})
}

func (r *Renderer) shapeRow(content string, attrs []text.CellAttrs) ([]text.ShapedGlyph, error) {
	if r.shaper != nil && r.font != nil {
		return text.ShapeWithFallback(r.shaper, r.font, content)
	}
	// Builtin path: one glyph per rune, advancing a cell at a time.
	// Clusters are byte offsets, matching the shaper's contract.
	glyphs := make([]text.ShapedGlyph, 0, len(content))
	adv := float64(r.settings.Target.CellWidth)
	x := 0.0
	for i, cp := range content {
		glyphs = append(glyphs, text.ShapedGlyph{GlyphID: uint32(cp), Cluster: i, X: x, XAdvance: adv})
		x += adv
	}
	return glyphs, nil
}

// emitBackgrounds appends one quad per run of equal background color,
// all backgrounds of a row before its glyphs so the batcher coalesces
// them into single draw calls.
func (r *Renderer) emitBackgrounds(p *render.Payload) {
	cw := int(p.Settings.Target.CellWidth)
	ch := int(p.Settings.Target.CellHeight)

	for _, row := range p.Rows {
		attrs := row.Attrs
		col := 0
		for col < len(attrs) {
			bg := attrs[col].Background
			runStart := col
			for col < len(attrs) && attrs[col].Background == bg {
				col++
			}
			if bg == p.Settings.Misc.BackgroundColor {
				continue // default background comes from the clear
			}
			r.batcher.AddInstance(render.QuadInstance{
				ShadingType: render.ShadingBackground,
				ScaleX:      1,
				ScaleY:      1,
				PositionX:   int16(runStart * cw),
				PositionY:   int16(row.Index * ch),
				SizeX:       uint16((col - runStart) * cw),
				SizeY:       uint16(ch),
				Color:       bg,
			})
		}
	}
}

func (r *Renderer) emitGlyphs(p *render.Payload) error {
	ch := int(p.Settings.Target.CellHeight)

	for _, row := range p.Rows {
		shaped, err := r.rowCache.GetOrShape(row.Index, row.Content, row.Attrs)
		if err != nil {
			return fmt.Errorf("software: shaping row %d: %w", row.Index, err)
		}

		cells := clusterCells(row.Content)
		for _, g := range shaped.Glyphs {
			entry, shading, ok := r.resolveGlyph(g)
			if !ok {
				continue
			}
			fg := uint32(0xFFFFFFFF)
			if cell := cellForCluster(row.Attrs, cells, g.Cluster); cell != nil {
				fg = cell.Foreground
			}
			r.batcher.AddInstance(render.QuadInstance{
				ShadingType: shading,
				ScaleX:      1,
				ScaleY:      1,
				PositionX:   int16(int(g.X) + int(entry.OffsetX)),
				PositionY:   int16(row.Index*ch + int(entry.OffsetY)),
				SizeX:       entry.Width,
				SizeY:       entry.Height,
				TexX:        entry.TexX,
				TexY:        entry.TexY,
				Color:       fg,
			})
		}
	}
	return nil
}

// resolveGlyph returns the atlas entry for a shaped glyph, rasterizing
// and inserting on miss. The glyph's own font decides which face the
// index belongs to; fallback-run glyphs rasterize from their fallback
// face. Atlas growth invalidates the row cache in the same operation
// via the generation handshake.
func (r *Renderer) resolveGlyph(g text.ShapedGlyph) (atlas.AtlasEntry, render.ShadingType, bool) {
	face := g.Font
	if face == nil {
		face = r.font
	}

	var faceID atlas.FontFaceID
	if face != nil {
		faceID = atlas.FontFaceID(face.ID())
	}
	key := atlas.GlyphKey{FontFace: faceID, GlyphIndex: g.GlyphID, ScaleX: 1, ScaleY: 1}

	if entry, ok := r.glyphs.Lookup(key); ok {
		return entry, r.glyphShading(), true
	}

	if face == nil {
		// Builtin block glyph: a cell-sized solid box, no mask.
		cw := r.settings.Target.CellWidth
		chh := r.settings.Target.CellHeight
		entry, err := r.glyphs.InsertOrGrow(key, cw, chh, 0, 0)
		if err != nil {
			return atlas.AtlasEntry{}, 0, false
		}
		r.rowCache.SetAtlasGeneration(r.glyphs.Generation())
		return entry, render.ShadingTextBuiltinGlyph, true
	}

	img, err := text.Rasterize(face, g.GlyphID, r.settings.Font.SizePx, r.settings.Font.DPI)
	if err != nil {
		// Degrade to the replacement character rather than a blank.
		gid, ok := face.GlyphIndex('�')
		if !ok {
			return atlas.AtlasEntry{}, 0, false
		}
		img, err = text.Rasterize(face, gid, r.settings.Font.SizePx, r.settings.Font.DPI)
		if err != nil {
			return atlas.AtlasEntry{}, 0, false
		}
	}
	entry, err := r.insertMask(key, img)
	if err != nil {
		return atlas.AtlasEntry{}, 0, false
	}
	return entry, r.glyphShading(), true
}

func (r *Renderer) glyphShading() render.ShadingType {
	if r.font == nil {
		return render.ShadingTextBuiltinGlyph
	}
	if r.settings.Font.ClearType {
		return render.ShadingTextClearType
	}
	return render.ShadingTextGrayscale
}

// insertMask inserts a rasterized glyph, growing the atlas when packing
// fails. Growth drops every mask, so the CPU store resets with it.
func (r *Renderer) insertMask(key atlas.GlyphKey, img *text.GlyphImage) (atlas.AtlasEntry, error) {
	w := img.Bounds.Dx()
	h := img.Bounds.Dy()
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}

	genBefore := r.glyphs.Generation()
	entry, err := r.glyphs.InsertOrGrow(key,
		uint16(w), uint16(h),
		int16(img.Bounds.Min.X), int16(img.Bounds.Min.Y))
	if err != nil {
		return atlas.AtlasEntry{}, err
	}
	if r.glyphs.Generation() != genBefore {
		clear(r.masks)
		r.rowCache.SetAtlasGeneration(r.glyphs.Generation())
	}

	mask := make([]byte, w*h)
	if img.Mask != nil {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				mask[y*w+x] = img.Mask.AlphaAt(x, y).A
			}
		}
	}
	r.masks[key] = mask
	return entry, nil
}

func (r *Renderer) emitCursor(p *render.Payload) {
	if !p.Cursor.Visible {
		return
	}
	cw := int(p.Settings.Target.CellWidth)
	ch := int(p.Settings.Target.CellHeight)
	r.batcher.AddInstance(render.QuadInstance{
		ShadingType: render.ShadingCursor,
		ScaleX:      1,
		ScaleY:      1,
		PositionX:   int16(p.Cursor.X * cw),
		PositionY:   int16(p.Cursor.Y * ch),
		SizeX:       uint16(max(p.Cursor.Width, 1) * cw),
		SizeY:       uint16(max(p.Cursor.Height, 1) * ch),
		Color:       p.Settings.Cursor.Color,
	})
}

func (r *Renderer) clear(color uint32) {
	for i := 0; i < len(r.pixmap); i += 4 {
		putRGBA(r.pixmap[i:], color)
	}
}

func (r *Renderer) drawInstance(q *render.QuadInstance) {
	switch q.ShadingType {
	case render.ShadingTextGrayscale, render.ShadingTextClearType:
		r.drawMasked(q)
	default:
		r.fillRect(int(q.PositionX), int(q.PositionY),
			int(q.SizeX)*int(q.ScaleX), int(q.SizeY)*int(q.ScaleY), q.Color)
	}
}

func (r *Renderer) drawMasked(q *render.QuadInstance) {
	// Find the mask by texcoord. Linear scan is fine: the CPU path is
	// a fallback, not a hot path.
	w := int(q.SizeX)
	h := int(q.SizeY)
	var mask []byte
	for k, m := range r.masks {
		if e, ok := r.glyphs.Lookup(k); ok && e.TexX == q.TexX && e.TexY == q.TexY {
			mask = m
			break
		}
	}
	if mask == nil {
		r.fillRect(int(q.PositionX), int(q.PositionY), w, h, q.Color)
		return
	}

	for y := 0; y < h; y++ {
		py := int(q.PositionY) + y
		if py < 0 || py >= r.height {
			continue
		}
		for x := 0; x < w; x++ {
			px := int(q.PositionX) + x
			if px < 0 || px >= r.width {
				continue
			}
			a := mask[y*w+x]
			if a == 0 {
				continue
			}
			blendRGBA(r.pixmap[(py*r.width+px)*4:], q.Color, a)
		}
	}
}

func (r *Renderer) fillRect(x, y, w, h int, color uint32) {
	for yy := y; yy < y+h; yy++ {
		if yy < 0 || yy >= r.height {
			continue
		}
		for xx := x; xx < x+w; xx++ {
			if xx < 0 || xx >= r.width {
				continue
			}
			putRGBA(r.pixmap[(yy*r.width+xx)*4:], color)
		}
	}
}

// Pixmap returns the current frame's RGBA pixels and dimensions.
func (r *Renderer) Pixmap() ([]byte, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pixmap, r.width, r.height
}

// Stats exposes the pipeline counters for diagnostics.
func (r *Renderer) Stats() (atlas.AtlasStats, text.RowStats) {
	return r.glyphs.Stats(), r.rowCache.Stats()
}

// ReleaseResources implements backend.Renderer.
func (r *Renderer) ReleaseResources() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler != nil {
		_ = r.scheduler.WaitForGpu()
	}
	r.pixmap = nil
	clear(r.masks)
	if r.glyphs != nil {
		r.glyphs.Reset()
	}
	if r.rowCache != nil {
		r.rowCache.InvalidateAll()
	}
	// Force a full settings re-apply on the next frame so the pixmap
	// and caches are rebuilt.
	r.havePrev = false
}

// RequiresContinuousRedraw implements backend.Renderer.
func (r *Renderer) RequiresContinuousRedraw() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.continuous
}

// Close implements backend.Renderer.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler != nil {
		_ = r.scheduler.Close()
		r.scheduler = nil
	}
	if r.glyphs != nil {
		r.glyphs.Close()
	}
	r.initialized = false
}

// clusterCells maps every byte offset of content to its cell index, so
// cluster byte offsets from the shaper resolve to the right cell even
// when earlier runes are multi-byte.
func clusterCells(content string) []int {
	cells := make([]int, len(content)+1)
	cell := 0
	i := 0
	for i < len(content) {
		_, size := utf8.DecodeRuneInString(content[i:])
		for b := 0; b < size; b++ {
			cells[i+b] = cell
		}
		i += size
		cell++
	}
	cells[len(content)] = cell
	return cells
}

func cellForCluster(attrs []text.CellAttrs, cells []int, cluster int) *text.CellAttrs {
	if cluster < 0 || cluster >= len(cells) {
		return nil
	}
	cell := cells[cluster]
	if cell >= len(attrs) {
		return nil
	}
	return &attrs[cell]
}

func putRGBA(dst []byte, color uint32) {
	dst[0] = byte(color >> 24)
	dst[1] = byte(color >> 16)
	dst[2] = byte(color >> 8)
	dst[3] = byte(color)
}

func blendRGBA(dst []byte, color uint32, alpha uint8) {
	a := uint32(alpha)
	inv := 255 - a
	dst[0] = byte((uint32(color>>24)*a + uint32(dst[0])*inv) / 255)
	dst[1] = byte((uint32(color>>16&0xFF)*a + uint32(dst[1])*inv) / 255)
	dst[2] = byte((uint32(color>>8&0xFF)*a + uint32(dst[2])*inv) / 255)
	dst[3] = 255
}

// cpuQueue executes recorded closures at Submit, standing in for a GPU
// command queue. Fence signals complete immediately after the work runs,
// since CPU execution is synchronous.
type cpuQueue struct {
	recorded []func()
}

func (q *cpuQueue) record(fn func()) {
	q.recorded = append(q.recorded, fn)
}

func (q *cpuQueue) Submit() error {
	for _, fn := range q.recorded {
		fn()
	}
	q.recorded = q.recorded[:0]
	return nil
}

func (q *cpuQueue) Signal(f render.Fence, value uint64) {
	f.Signal(value)
}

type cpuAllocator struct{}

func (cpuAllocator) Reset() error { return nil }

type cpuPresenter struct {
	index int
}

func (p *cpuPresenter) Present() (int, error) {
	p.index = (p.index + 1) % render.FrameCount
	return p.index, nil
}
