// Package wgpu provides the GPU-accelerated rendering backend built on
// gogpu/wgpu. Cell composition runs as compute dispatches; glyph bitmaps
// live in a shared atlas uploaded as a storage buffer.
package wgpu

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/termatlas/atlas"
	"github.com/gogpu/termatlas/backend"
	"github.com/gogpu/termatlas/render"
	"github.com/gogpu/termatlas/text"
)

func init() {
	backend.Register(backend.BackendWGPU, func() backend.Renderer {
		return New()
	})
}

// Renderer-specific errors.
var (
	// ErrNoGPU is returned when no suitable GPU adapter is found.
	ErrNoGPU = errors.New("wgpu: no suitable GPU adapter")

	// ErrRendererClosed is returned when operating on a closed renderer.
	ErrRendererClosed = errors.New("wgpu: renderer closed")
)

// Renderer is the wgpu backend.
type Renderer struct {
	mu sync.Mutex

	// GPU resources. Owned when Init probed its own adapter; borrowed
	// when the host supplied a device handle.
	instance   *core.Instance
	adapter    core.AdapterID
	device     core.DeviceID
	queue      core.QueueID
	ownsDevice bool

	gpuInfo *GPUInfo
	caps    render.DeviceCapabilities

	compositor *gridCompositor
	dispatcher *render.ComputeDispatcher
	scheduler  *render.FrameScheduler
	cmdQueue   *commandQueue

	batcher  *render.Batcher
	glyphs   *atlas.GlyphAtlas
	rowCache *text.RowCache

	// rasterCache bounds the bytes of rasterized masks kept across
	// atlas resets, so growth does not force re-rasterizing every
	// glyph. rasterData holds the actual mask bytes; the eviction hook
	// keeps the two in lockstep.
	rasterCache *atlas.BudgetCache
	rasterData  map[atlas.BudgetKey]*cachedMask

	// atlasPixels is the CPU shadow of the atlas texture: one coverage
	// byte per texel, tightly packed. Uploads restage it with aligned
	// row pitch.
	atlasPixels []byte
	atlasW      int
	atlasH      int

	// framebuffer holds the composed RGBA frame for readback.
	framebuffer []byte
	width       int
	height      int

	font   *text.FontSource
	shaper text.Shaper

	settings render.Settings
	havePrev bool

	continuous  bool
	initialized bool
	closed      bool
}

// rasterBudget bounds the rasterization cache (64 MiB of mask bytes).
const rasterBudget = 64 << 20

// cachedMask is one rasterized glyph's coverage bitmap plus its ink
// offset, kept so atlas resets can re-blit without re-rasterizing.
type cachedMask struct {
	mask    []byte
	width   uint16
	height  uint16
	offsetX int16
	offsetY int16
}

// New creates an uninitialized wgpu renderer.
func New() *Renderer {
	return &Renderer{}
}

// Name implements backend.Renderer.
func (r *Renderer) Name() string { return backend.BackendWGPU }

// SetFont supplies the font used for glyph rasterization.
func (r *Renderer) SetFont(f *text.FontSource) {
	r.mu.Lock()
	r.font = f
	r.mu.Unlock()
}

// GPUInfo returns information about the selected GPU, or nil before
// initialization.
func (r *Renderer) GPUInfo() *GPUInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gpuInfo
}

// Capabilities returns the probed device capabilities.
func (r *Renderer) Capabilities() render.DeviceCapabilities {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caps
}

// Init implements backend.Renderer. When the host handle carries a
// usable device the renderer borrows it; otherwise it probes its own
// adapter, preferring a high-performance GPU. Any resource-creation
// failure is fatal: the renderer never runs partially initialized.
func (r *Renderer) Init(handle render.DeviceHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}
	if r.initialized {
		return nil
	}

	var halDevice hal.Device
	var halQueue hal.Queue
	if handle != nil && handle.Device() != nil {
		// Host-provided device: use it when it speaks HAL.
		if d, ok := handle.Device().(hal.Device); ok {
			halDevice = d
		}
		if q, ok := handle.Queue().(hal.Queue); ok {
			halQueue = q
		}
	}

	if halDevice == nil {
		if err := r.probeDevice(); err != nil {
			return err
		}
	}

	compositor, err := newGridCompositor(halDevice, halQueue)
	if err != nil {
		r.releaseGPU()
		return fmt.Errorf("wgpu: compositor creation failed: %w", err)
	}
	r.compositor = compositor

	maxDim := atlas.DefaultMaxDimension
	if r.caps.MaxTextureSize > 0 && int(r.caps.MaxTextureSize) < maxDim {
		maxDim = int(r.caps.MaxTextureSize)
	}
	r.glyphs = atlas.NewGlyphAtlas(atlas.Config{MaxDimension: maxDim})
	r.atlasW, r.atlasH = r.glyphs.Size()
	r.atlasPixels = make([]byte, r.atlasW*r.atlasH)

	r.batcher = render.NewBatcher()
	r.rowCache = text.NewRowCache(0, r.shapeRow)
	r.rasterCache = atlas.NewBudgetCache(rasterBudget)
	r.rasterData = make(map[atlas.BudgetKey]*cachedMask)
	// The hook runs under the cache lock; map access is safe because
	// every cache operation happens under r.mu.
	r.rasterCache.SetEvictionHook(func(key atlas.BudgetKey, _ atlas.BudgetEntry) {
		delete(r.rasterData, key)
	})
	r.cmdQueue = &commandQueue{}

	var cfg render.SchedulerConfig
	cfg.Graphics = r.cmdQueue
	cfg.GraphicsFence = render.NewCPUFence()
	cfg.Compute = r.cmdQueue
	cfg.ComputeFence = render.NewCPUFence()
	cfg.Present = &swapPresenter{}
	for i := 0; i < render.FrameCount; i++ {
		cfg.Allocators[i] = &commandAllocator{}
	}

	scheduler, err := render.NewFrameScheduler(cfg)
	if err != nil {
		compositor.Destroy()
		r.releaseGPU()
		return fmt.Errorf("wgpu: %w", err)
	}
	r.scheduler = scheduler
	r.dispatcher = render.NewComputeDispatcher(r.cmdQueue, render.NewCPUFence(), compositor)

	r.initialized = true
	return nil
}

// probeDevice creates this renderer's own instance, adapter, device and
// queue through wgpu core.
func (r *Renderer) probeDevice() error {
	desc := &gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
	}
	r.instance = core.NewInstance(desc)

	adapterID, err := r.instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		r.instance = nil
		return fmt.Errorf("%w: %w", ErrNoGPU, err)
	}
	r.adapter = adapterID

	logGPUInfo(adapterID)
	r.gpuInfo, _ = getGPUInfo(adapterID)

	deviceID, err := createDevice(adapterID, "termatlas-device")
	if err != nil {
		r.releaseGPU()
		return fmt.Errorf("wgpu: device creation failed: %w", err)
	}
	r.device = deviceID

	queueID, err := getDeviceQueue(deviceID)
	if err != nil {
		r.releaseGPU()
		return fmt.Errorf("wgpu: queue retrieval failed: %w", err)
	}
	r.queue = queueID
	r.ownsDevice = true

	caps, err := deviceCapabilities(deviceID, r.gpuInfo)
	if err != nil {
		log.Printf("wgpu: failed to read device limits: %v", err)
	} else {
		r.caps = caps
	}

	log.Println("wgpu: backend initialized successfully")
	return nil
}

// Render implements backend.Renderer.
func (r *Renderer) Render(payload *render.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}
	if !r.initialized {
		return backend.ErrNotInitialized
	}
	if payload == nil {
		return errors.New("wgpu: nil payload")
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

	// Restage the atlas shadow with upload row alignment; the shader
	// indexes coverage rows by the aligned pitch.
	staged, pitch := render.StageTextureRows(r.atlasPixels, uint32(r.atlasW), uint32(r.atlasH))

	cfg := gridConfig{
		ViewportWidth:  uint32(r.width),
		ViewportHeight: uint32(r.height),
		AtlasWidth:     pitch,
		Background:     payload.Settings.Misc.BackgroundColor,
		CellWidth:      uint32(payload.Settings.Target.CellWidth),
		CellHeight:     uint32(payload.Settings.Target.CellHeight),
	}
	r.compositor.SetFrame(cfg, r.batcher.Instances(), staged, r.framebuffer)

	total := uint32(r.width * r.height)
	groups := (total + 255) / 256
	if _, err := r.dispatcher.Dispatch(groups, 1, 1); err != nil {
		return err
	}
	// Graphics samples buffers written by compute this frame; the wait
	// expresses the cross-queue dependency even while both run on one
	// command queue.
	if err := r.waitForCompute(); err != nil {
		return err
	}

	if err := r.scheduler.Execute(); err != nil {
		return err
	}
	if err := r.scheduler.Present(); err != nil {
		return err
	}
	return r.scheduler.MoveToNextFrame()
}

func (r *Renderer) applySettings(s render.Settings) {
	diff := s.Diff(r.settings)
	if !r.havePrev {
		diff = render.SettingsDiff{Target: true, Font: true, Cursor: true, Misc: true}
	}

	if diff.Target {
		r.width = int(s.Target.PixelWidth)
		r.height = int(s.Target.PixelHeight)
		r.framebuffer = make([]byte, r.width*r.height*4)
		r.rowCache.Resize(s.Target.Rows)
	}
	if diff.Font {
		r.glyphs.Reset()
		r.resetAtlasPixels()
		r.shaper = text.NewGoTextShaper(s.Font.SizePx)
		r.rowCache.SetAtlasGeneration(r.glyphs.Generation())
		r.rowCache.InvalidateAll()
		r.settings = s // preload rasterizes against the new settings
		r.preload()
	}
	if diff.Misc {
		r.continuous = s.Misc.CustomShaderTime
	}

	r.settings = s
	r.havePrev = true
}

func (r *Renderer) resetAtlasPixels() {
	w, h := r.glyphs.Size()
	if w != r.atlasW || h != r.atlasH || r.atlasPixels == nil {
		r.atlasW, r.atlasH = w, h
		r.atlasPixels = make([]byte, w*h)
		return
	}
	clear(r.atlasPixels)
}

// waitForCompute blocks the graphics side on the latest compute fence
// value, so composition results are complete before they are consumed.
func (r *Renderer) waitForCompute() error {
	wait := r.dispatcher.GraphicsWaitValue()
	if wait == 0 {
		return nil
	}
	if err := r.dispatcher.Fence().Wait(wait, render.DefaultFenceTimeout); err != nil {
		return fmt.Errorf("%w: compute fence stuck below %d: %v", render.ErrDeviceLost, wait, err)
	}
	return nil
}

func (r *Renderer) preload() {
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
		img, err := text.Rasterize(r.font, gid, r.settings.Font.SizePx, r.settings.Font.DPI)
		if err != nil {
			return false
		}
		key := atlas.GlyphKey{
			FontFace:   atlas.FontFaceID(r.font.ID()),
			GlyphIndex: gid,
			ScaleX:     1,
			ScaleY:     1,
		}
		_, err = r.insertGlyph(r.font, key, img)
		return err == nil
	})
}

func (r *Renderer) shapeRow(content string, attrs []text.CellAttrs) ([]text.ShapedGlyph, error) {
	if r.shaper != nil && r.font != nil {
		return text.ShapeWithFallback(r.shaper, r.font, content)
	}
	// Builtin path: clusters are byte offsets, matching the shaper.
	glyphs := make([]text.ShapedGlyph, 0, len(content))
	adv := float64(r.settings.Target.CellWidth)
	x := 0.0
	for i, cp := range content {
		glyphs = append(glyphs, text.ShapedGlyph{GlyphID: uint32(cp), Cluster: i, X: x, XAdvance: adv})
		x += adv
	}
	return glyphs, nil
}

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
				continue
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
			return fmt.Errorf("wgpu: shaping row %d: %w", row.Index, err)
		}

		for _, g := range shaped.Glyphs {
			entry, shading, ok := r.resolveGlyph(g)
			if !ok {
				continue
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
			})
		}
	}
	return nil
}

// resolveGlyph maps a shaped glyph to its atlas entry, rasterizing and
// packing on a miss. Fallback runs carry their own face, so both the
// atlas key and the rasterization go through g.Font.
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
		entry, err := r.glyphs.InsertOrGrow(key,
			r.settings.Target.CellWidth, r.settings.Target.CellHeight, 0, 0)
		if err != nil {
			return atlas.AtlasEntry{}, 0, false
		}
		r.syncAtlasGeneration()
		return entry, render.ShadingTextBuiltinGlyph, true
	}

	// A raster-cache hit skips rasterization entirely: the cached mask
	// is re-blitted into the (possibly reset) atlas.
	bk := r.budgetKey(face, g.GlyphID)
	if _, ok := r.rasterCache.TryGet(bk); ok {
		if cm, ok := r.rasterData[bk]; ok {
			entry, err := r.insertMask(key, cm)
			if err != nil {
				return atlas.AtlasEntry{}, 0, false
			}
			return entry, r.glyphShading(), true
		}
	}

	img, err := text.Rasterize(face, g.GlyphID, r.settings.Font.SizePx, r.settings.Font.DPI)
	if err != nil {
		// Unrenderable glyph index: fall back to the face's replacement
		// character.
		gid, ok := face.GlyphIndex('�')
		if !ok {
			return atlas.AtlasEntry{}, 0, false
		}
		img, err = text.Rasterize(face, gid, r.settings.Font.SizePx, r.settings.Font.DPI)
		if err != nil {
			return atlas.AtlasEntry{}, 0, false
		}
	}
	entry, err := r.insertGlyph(face, key, img)
	if err != nil {
		return atlas.AtlasEntry{}, 0, false
	}
	return entry, r.glyphShading(), true
}

// budgetKey identifies a rasterization in the byte-budgeted cache. Font
// size is quantized to quarter pixels.
func (r *Renderer) budgetKey(face *text.FontSource, glyphID uint32) atlas.BudgetKey {
	var fontID uint64
	if face != nil {
		fontID = uint64(face.ID())
	}
	return atlas.BudgetKey{
		FontID:   fontID,
		GlyphID:  glyphID,
		FontSize: uint16(r.settings.Font.SizePx * 4),
		DPI:      uint16(r.settings.Font.DPI),
	}
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

// insertGlyph extracts the rasterized coverage, remembers it in the
// raster cache, and packs it into the atlas.
func (r *Renderer) insertGlyph(face *text.FontSource, key atlas.GlyphKey, img *text.GlyphImage) (atlas.AtlasEntry, error) {
	cm := maskFromImage(img)
	r.storeRaster(face, key.GlyphIndex, cm)
	return r.insertMask(key, cm)
}

// maskFromImage copies a glyph image's alpha into a tightly packed
// coverage slice. Empty glyphs still get a 1x1 footprint so the atlas
// hands back a valid entry.
func maskFromImage(img *text.GlyphImage) *cachedMask {
	w := img.Bounds.Dx()
	h := img.Bounds.Dy()
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	cm := &cachedMask{
		width:   uint16(w),
		height:  uint16(h),
		offsetX: int16(img.Bounds.Min.X),
		offsetY: int16(img.Bounds.Min.Y),
	}
	if img.Mask != nil {
		// Mask pixels are zero-based; Bounds carries only the ink offset.
		cm.mask = make([]byte, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				cm.mask[y*w+x] = img.Mask.AlphaAt(x, y).A
			}
		}
	}
	return cm
}

// storeRaster accounts the mask against the byte budget. Oversized
// masks are skipped and will be rasterized again on demand.
func (r *Renderer) storeRaster(face *text.FontSource, glyphID uint32, cm *cachedMask) {
	bk := r.budgetKey(face, glyphID)
	entry := atlas.BudgetEntry{
		Width:    cm.width,
		Height:   cm.height,
		DataSize: uint64(len(cm.mask)),
	}
	if entry.DataSize == 0 {
		entry.DataSize = 1 // blank glyphs still occupy a slot
	}
	if err := r.rasterCache.Insert(bk, entry); err != nil {
		return
	}
	r.rasterData[bk] = cm
}

// insertMask packs a coverage mask and blits it into the atlas shadow.
// Growth reallocates the shadow and invalidates the row cache through
// the generation handshake.
func (r *Renderer) insertMask(key atlas.GlyphKey, cm *cachedMask) (atlas.AtlasEntry, error) {
	genBefore := r.glyphs.Generation()
	entry, err := r.glyphs.InsertOrGrow(key, cm.width, cm.height, cm.offsetX, cm.offsetY)
	if err != nil {
		return atlas.AtlasEntry{}, err
	}
	if r.glyphs.Generation() != genBefore {
		r.resetAtlasPixels()
		r.syncAtlasGeneration()
	}

	if cm.mask != nil {
		w, h := int(cm.width), int(cm.height)
		for y := 0; y < h; y++ {
			rowOff := (int(entry.TexY)+y)*r.atlasW + int(entry.TexX)
			copy(r.atlasPixels[rowOff:rowOff+w], cm.mask[y*w:(y+1)*w])
		}
	}
	return entry, nil
}

func (r *Renderer) syncAtlasGeneration() {
	r.rowCache.SetAtlasGeneration(r.glyphs.Generation())
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

// Pixmap returns the composed RGBA frame and its dimensions.
func (r *Renderer) Pixmap() ([]byte, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.framebuffer, r.width, r.height
}

// Stats exposes the pipeline counters for diagnostics.
func (r *Renderer) Stats() (atlas.AtlasStats, text.RowStats) {
	return r.glyphs.Stats(), r.rowCache.Stats()
}

// RasterStats exposes the raster cache counters for diagnostics.
func (r *Renderer) RasterStats() atlas.BudgetStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rasterCache.Stats()
}

// ReleaseResources implements backend.Renderer.
func (r *Renderer) ReleaseResources() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return
	}

	if r.dispatcher != nil {
		_ = r.dispatcher.WaitForIdle()
	}
	if r.scheduler != nil {
		_ = r.scheduler.WaitForGpu()
	}

	r.framebuffer = nil
	if r.glyphs != nil {
		r.glyphs.Reset()
	}
	r.resetAtlasPixels()
	if r.rowCache != nil {
		r.rowCache.InvalidateAll()
	}
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
	if r.closed {
		return
	}

	if r.scheduler != nil {
		_ = r.scheduler.Close()
		r.scheduler = nil
	}
	if r.compositor != nil {
		r.compositor.Destroy()
		r.compositor = nil
	}
	if r.glyphs != nil {
		r.glyphs.Close()
	}

	r.releaseGPU()

	r.initialized = false
	r.closed = true
	log.Println("wgpu: backend closed")
}

// releaseGPU drops owned GPU resources in reverse creation order.
func (r *Renderer) releaseGPU() {
	if !r.ownsDevice && r.adapter.IsZero() && r.instance == nil {
		return
	}

	if !r.device.IsZero() {
		if err := releaseDevice(r.device); err != nil {
			log.Printf("wgpu: error releasing device: %v", err)
		}
		r.device = core.DeviceID{}
	}

	if !r.adapter.IsZero() {
		if err := releaseAdapter(r.adapter); err != nil {
			log.Printf("wgpu: error releasing adapter: %v", err)
		}
		r.adapter = core.AdapterID{}
	}

	r.instance = nil
	r.queue = core.QueueID{}
	r.gpuInfo = nil
	r.ownsDevice = false
}

// commandQueue records work at dispatch time and runs it at Submit,
// preserving submission ordering while command buffer export through
// HAL is pending.
type commandQueue struct {
	recorded []func()
}

func (q *commandQueue) record(fn func()) {
	q.recorded = append(q.recorded, fn)
}

func (q *commandQueue) Submit() error {
	for _, fn := range q.recorded {
		fn()
	}
	q.recorded = q.recorded[:0]
	return nil
}

func (q *commandQueue) Signal(f render.Fence, value uint64) {
	f.Signal(value)
}

type commandAllocator struct{}

func (commandAllocator) Reset() error { return nil }

type swapPresenter struct {
	index int
}

func (p *swapPresenter) Present() (int, error) {
	p.index = (p.index + 1) % render.FrameCount
	return p.index, nil
}
