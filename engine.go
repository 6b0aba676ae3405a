package termatlas

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gogpu/termatlas/backend"
	"github.com/gogpu/termatlas/render"
	"github.com/gogpu/termatlas/text"
)

// Engine errors.
var (
	// ErrNoBackend is returned when no rendering backend is registered.
	// Import a backend package for its side effects to register one.
	ErrNoBackend = errors.New("termatlas: no rendering backend available")

	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("termatlas: engine closed")
)

// Config configures an Engine.
type Config struct {
	// Backend selects a renderer by name ("wgpu", "software"). Empty
	// picks the best available backend.
	Backend string

	// Device is the host-provided GPU device. Nil selects CPU-only
	// device handling (render.NullDeviceHandle).
	Device render.DeviceHandle

	// FontPath loads the primary font from a file. FontData takes
	// precedence when both are set.
	FontPath string

	// FontData is the primary font, as raw TTF/OTF bytes.
	FontData []byte

	// FallbackFontPaths are additional fonts consulted when the
	// primary font lacks a glyph.
	FallbackFontPaths []string

	// Flags carries stateful runtime toggles.
	Flags render.RuntimeFlags
}

// fontSetter is implemented by backends that rasterize real fonts.
type fontSetter interface {
	SetFont(*text.FontSource)
}

// Engine owns one renderer instance and the font it draws with. It is
// the package's top-level entry point: the host creates an Engine at
// startup and calls Render once per frame.
//
// Initialization is all-or-nothing. Any resource-creation failure in
// New is fatal for that engine; there is no partially working state.
type Engine struct {
	mu       sync.Mutex
	renderer backend.Renderer
	font     *text.FontSource
	closed   bool
}

// New creates and initializes an engine. The selected backend is
// initialized against cfg.Device immediately; an engine that New
// returns without error is ready to render.
func New(cfg Config) (*Engine, error) {
	var r backend.Renderer
	if cfg.Backend != "" {
		r = backend.Get(cfg.Backend)
		if r == nil {
			return nil, fmt.Errorf("%w: %q not registered", ErrNoBackend, cfg.Backend)
		}
	} else {
		r = backend.Default()
		if r == nil {
			return nil, ErrNoBackend
		}
	}

	e := &Engine{renderer: r}

	if err := e.loadFonts(cfg); err != nil {
		r.Close()
		return nil, err
	}

	device := cfg.Device
	if device == nil {
		device = render.NullDeviceHandle{}
	}
	if err := r.Init(device); err != nil {
		r.Close()
		return nil, fmt.Errorf("termatlas: backend %q init: %w", r.Name(), err)
	}

	Logger().Info("renderer initialized",
		"backend", r.Name(),
		"font", e.font != nil,
		"asyncLoader", cfg.Flags.AsyncLoader)

	return e, nil
}

// loadFonts resolves the configured font sources and hands them to the
// renderer when it accepts fonts.
func (e *Engine) loadFonts(cfg Config) error {
	data := cfg.FontData
	if data == nil && cfg.FontPath != "" {
		var err error
		data, err = loadFontFile(cfg.FontPath, cfg.Flags.AsyncLoader)
		if err != nil {
			return fmt.Errorf("termatlas: loading font %q: %w", cfg.FontPath, err)
		}
	}
	if data == nil {
		return nil // builtin glyph rendering
	}

	font, err := text.NewFontSource(data)
	if err != nil {
		return fmt.Errorf("termatlas: parsing font: %w", err)
	}

	for _, path := range cfg.FallbackFontPaths {
		fbData, err := loadFontFile(path, cfg.Flags.AsyncLoader)
		if err != nil {
			Logger().Warn("skipping fallback font", "path", path, "error", err)
			continue
		}
		fb, err := text.NewFontSource(fbData)
		if err != nil {
			Logger().Warn("skipping unparsable fallback font", "path", path, "error", err)
			continue
		}
		font.AddFallback(fb)
	}

	e.font = font
	if fs, ok := e.renderer.(fontSetter); ok {
		fs.SetFont(font)
	}
	return nil
}

// loadFontFile reads a font file through the byte loader. The async
// path batches the read through worker goroutines; a failure there is
// not fatal and falls back to the synchronous loader.
func loadFontFile(path string, async bool) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	size := info.Size()
	buf := make([]byte, size)

	if async {
		loader := render.NewAsyncLoader(0)
		if loader.EnqueueRead(path, buf, 0, size, 0) {
			if err := loader.Submit(); err == nil {
				if err := loader.WaitForIdle(); err == nil {
					return buf, nil
				}
			}
		}
		Logger().Warn("async font load failed, falling back to sync", "path", path)
	}

	loader := &render.SyncLoader{}
	if !loader.EnqueueRead(path, buf, 0, size, 0) {
		return nil, fmt.Errorf("read rejected for %q", path)
	}
	if err := loader.Submit(); err != nil {
		return nil, err
	}
	return buf, nil
}

// Render draws one frame. Device loss surfaces as render.ErrDeviceLost
// and is fatal for this engine instance.
func (e *Engine) Render(payload *render.Payload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return e.renderer.Render(payload)
}

// Backend returns the active backend's name.
func (e *Engine) Backend() string {
	return e.renderer.Name()
}

// Font returns the engine's primary font, or nil when rendering with
// builtin glyphs.
func (e *Engine) Font() *text.FontSource {
	return e.font
}

// RequiresContinuousRedraw reports whether the host must repaint every
// vsync instead of waiting for damage.
func (e *Engine) RequiresContinuousRedraw() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	return e.renderer.RequiresContinuousRedraw()
}

// ReleaseResources drops the renderer's GPU resources. Rendering after
// this rebuilds them.
func (e *Engine) ReleaseResources() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.renderer.ReleaseResources()
}

// Close shuts the engine down. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.renderer.Close()
	e.closed = true
}
