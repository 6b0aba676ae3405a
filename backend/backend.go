// Package backend defines the renderer interface terminal frontends draw
// through, plus the registry that selects a concrete implementation at
// startup based on capability probing.
package backend

import (
	"errors"

	"github.com/gogpu/termatlas/render"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Renderer is the interface for rendering backends. It abstracts the
// GPU API behind one flat interface, one concrete variant per backend,
// selected at startup, never inheritance chains deeper than this.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type Renderer interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Init initializes the backend against the host-provided device.
	// Resource-creation failure here is fatal: no partial-engine
	// operation is supported, the caller gets a hard error.
	Init(device render.DeviceHandle) error

	// Render draws one frame from the payload. Device loss is returned
	// as render.ErrDeviceLost and is fatal for this instance.
	Render(payload *render.Payload) error

	// ReleaseResources drops all GPU resources. The backend may be
	// re-initialized afterwards.
	ReleaseResources()

	// RequiresContinuousRedraw reports whether the host must repaint
	// every vsync, true only while a time-based custom effect is
	// active.
	RequiresContinuousRedraw() bool

	// Close releases the backend entirely.
	// The backend should not be used after Close is called.
	Close()
}
