// Command termatlas-info probes the available rendering backends and
// renders a test frame, reporting cache and device statistics.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/termatlas"
	"github.com/gogpu/termatlas/backend"
	"github.com/gogpu/termatlas/render"
	"github.com/gogpu/termatlas/text"

	_ "github.com/gogpu/termatlas/backend/software"
	"github.com/gogpu/termatlas/backend/wgpu"
)

func main() {
	var (
		name    = flag.String("backend", "", "backend to probe (default: best available)")
		font    = flag.String("font", "", "path to a TTF/OTF font for the test frame")
		cols    = flag.Int("cols", 80, "grid columns")
		rows    = flag.Int("rows", 24, "grid rows")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	termatlas.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	fmt.Println("registered backends:")
	for _, b := range backend.Available() {
		fmt.Printf("  %s\n", b)
	}

	eng, err := termatlas.New(termatlas.Config{
		Backend:  *name,
		FontPath: *font,
	})
	if err != nil {
		log.Fatalf("engine creation failed: %v", err)
	}
	defer eng.Close()

	fmt.Printf("selected backend: %s\n", eng.Backend())

	settings := render.Settings{}.
		WithTarget(render.TargetSettings{
			PixelWidth:  uint32(*cols * 8),
			PixelHeight: uint32(*rows * 16),
			CellWidth:   8,
			CellHeight:  16,
			Rows:        *rows,
			Cols:        *cols,
		}).
		WithFont(render.FontSettings{Family: "probe", SizePx: 14, DPI: 96}).
		WithCursor(render.CursorSettings{Style: render.CursorBlock, Color: 0xAAAAAAFF}).
		WithMisc(render.MiscSettings{BackgroundColor: 0x101010FF})

	payload := &render.Payload{
		Settings: settings,
		Rows:     testRows(*rows, *cols),
		Cursor:   render.CursorRect{X: 0, Y: 0, Width: 1, Height: 1, Visible: true},
	}

	if err := eng.Render(payload); err != nil {
		log.Fatalf("test frame failed: %v", err)
	}
	fmt.Println("test frame rendered")

	reportStats(eng.Backend())
}

// testRows fills the grid with printable ASCII so the atlas and row
// cache see realistic content.
func testRows(rows, cols int) []render.Row {
	out := make([]render.Row, 0, rows)
	for r := 0; r < rows; r++ {
		content := make([]byte, cols)
		attrs := make([]text.CellAttrs, cols)
		for c := 0; c < cols; c++ {
			content[c] = byte(0x20 + (r*cols+c)%95)
			attrs[c] = text.CellAttrs{Foreground: 0xFFFFFFFF, Background: 0x101010FF}
		}
		out = append(out, render.Row{Index: r, Content: string(content), Attrs: attrs})
	}
	return out
}

// reportStats probes the GPU path for device details when it was the
// selected backend.
func reportStats(name string) {
	if name != backend.BackendWGPU {
		return
	}

	r := wgpu.New()
	if err := r.Init(nil); err != nil {
		fmt.Printf("gpu probe failed: %v\n", err)
		return
	}
	defer r.Close()

	if info := r.GPUInfo(); info != nil {
		fmt.Printf("gpu: %s\n", info)
	}
	caps := r.Capabilities()
	if caps.MaxTextureSize > 0 {
		fmt.Printf("max texture size: %d\n", caps.MaxTextureSize)
		fmt.Printf("max buffer size:  %d\n", caps.MaxBufferSize)
	}
}
