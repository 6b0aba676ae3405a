// Package termatlas is the rendering core of a GPU-accelerated terminal
// emulator.
//
// # Overview
//
// termatlas turns terminal screen content (rows of styled cells) into
// frames. It caches rasterized glyphs in a texture atlas, caches shaping
// results per row, batches cell quads into instanced draw calls, and
// paces frames against GPU completion fences.
//
// # Quick Start
//
//	import "github.com/gogpu/termatlas"
//
//	eng, err := termatlas.New(termatlas.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	err = eng.Render(&render.Payload{
//	    Settings: settings,
//	    Rows:     rows,
//	    Cursor:   cursor,
//	})
//
// # Architecture
//
// The module is organized into:
//   - atlas: glyph atlas with shelf packing, plus a byte-budgeted LRU cache
//   - text: shaping (go-text/typesetting), rasterization, row-level cache
//   - render: instance batching, frame scheduling, compute dispatch
//   - backend: renderer registry; backend/wgpu (GPU), backend/software (CPU)
//
// Backends register themselves in init(); import the ones you want:
//
//	import (
//	    _ "github.com/gogpu/termatlas/backend/software"
//	    _ "github.com/gogpu/termatlas/backend/wgpu"
//	)
//
// # Logging
//
// termatlas is silent by default. Call [SetLogger] to enable structured
// logging through log/slog.
package termatlas

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"
)
