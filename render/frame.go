package render

import (
	"errors"
	"fmt"
	"time"
)

// Frame scheduling errors.
var (
	// ErrDeviceLost is returned when the GPU device is gone: a failed
	// present, or a fence that stopped advancing. Fatal for this
	// renderer instance; the caller tears down and rebuilds the whole
	// rendering stack. No in-place recovery is attempted.
	ErrDeviceLost = errors.New("render: GPU device lost")

	// ErrSchedulerClosed is returned when using a scheduler after
	// Close.
	ErrSchedulerClosed = errors.New("render: frame scheduler is closed")
)

// FrameCount is the number of buffering slots (triple buffering). CPU
// recording for frame N overlaps GPU execution of frames N-1 and N-2;
// BeginFrame blocks once the CPU gets further ahead than that.
const FrameCount = 3

// CommandAllocator owns the command memory one frame records into. It
// may only be reset once the GPU has finished consuming the commands,
// which the scheduler guarantees via the slot's fence watermark.
type CommandAllocator interface {
	Reset() error
}

// Queue abstracts one GPU command queue. Within a queue, submission
// order is execution order; across queues the only ordering mechanism is
// an explicit fence signal/wait pair.
type Queue interface {
	// Submit executes the work recorded since the last Submit.
	Submit() error

	// Signal enqueues a fence signal that fires after all previously
	// submitted work completes.
	Signal(fence Fence, value uint64)
}

// Presenter abstracts the swapchain: swap the displayed buffer and
// report which back-buffer index the presentation engine wants next.
type Presenter interface {
	Present() (nextIndex int, err error)
}

// FrameResource is the per-slot state of one in-flight frame. The render
// target aliases a swapchain back-buffer; it is borrowed, never owned,
// and released by dropping the reference at shutdown.
type FrameResource struct {
	Allocator    CommandAllocator
	RenderTarget any

	// FenceValue is the graphics-fence watermark the GPU must pass
	// before this slot's allocator may be reused.
	FenceValue uint64
}

// SchedulerConfig wires a FrameScheduler to its device objects.
type SchedulerConfig struct {
	Graphics Queue
	Compute  Queue // optional
	Copy     Queue // optional
	Present  Presenter

	GraphicsFence Fence
	ComputeFence  Fence // required when Compute is set
	CopyFence     Fence // required when Copy is set

	// Allocators supplies one command allocator per buffering slot.
	Allocators [FrameCount]CommandAllocator

	// RenderTargets are the borrowed swapchain back-buffers, one per
	// slot.
	RenderTargets [FrameCount]any

	// FenceTimeout bounds steady-state fence waits. Zero means
	// DefaultFenceTimeout. A wait that expires is reported as
	// ErrDeviceLost, not retried.
	FenceTimeout time.Duration
}

// FrameScheduler runs the steady-state render loop with bounded CPU/GPU
// overlap and no data races on frame-local buffers.
//
// Per slot, the state machine is Idle → Recording → Submitted →
// (fence signaled) → Idle. The only blocking point in the steady-state
// path is BeginFrame's fence wait, which caps frames in flight at
// FrameCount-1.
type FrameScheduler struct {
	frames [FrameCount]FrameResource
	index  int

	graphics Queue
	compute  Queue
	copyq    Queue
	present  Presenter

	graphicsFence Fence
	computeFence  Fence
	copyFence     Fence

	nextFenceValue uint64
	timeout        time.Duration
	closed         bool

	// pendingIndex is the back-buffer index the last Present reported;
	// MoveToNextFrame consumes it.
	pendingIndex int
	hasPending   bool
}

// NewFrameScheduler creates a scheduler from the given device objects.
// Graphics queue, graphics fence and presenter are required.
func NewFrameScheduler(cfg SchedulerConfig) (*FrameScheduler, error) {
	if cfg.Graphics == nil || cfg.GraphicsFence == nil || cfg.Present == nil {
		return nil, errors.New("render: scheduler requires a graphics queue, fence and presenter")
	}
	if cfg.Compute != nil && cfg.ComputeFence == nil {
		return nil, errors.New("render: compute queue configured without a fence")
	}
	if cfg.Copy != nil && cfg.CopyFence == nil {
		return nil, errors.New("render: copy queue configured without a fence")
	}
	if cfg.FenceTimeout == 0 {
		cfg.FenceTimeout = DefaultFenceTimeout
	}

	s := &FrameScheduler{
		graphics:      cfg.Graphics,
		compute:       cfg.Compute,
		copyq:         cfg.Copy,
		present:       cfg.Present,
		graphicsFence: cfg.GraphicsFence,
		computeFence:  cfg.ComputeFence,
		copyFence:     cfg.CopyFence,
		// Fence values start at 1 so a zero watermark always reads as
		// "already complete".
		nextFenceValue: 1,
		timeout:        cfg.FenceTimeout,
	}
	for i := 0; i < FrameCount; i++ {
		s.frames[i] = FrameResource{
			Allocator:    cfg.Allocators[i],
			RenderTarget: cfg.RenderTargets[i],
		}
	}
	return s, nil
}

// Frame returns the slot currently being recorded.
func (s *FrameScheduler) Frame() *FrameResource {
	return &s.frames[s.index]
}

// FrameIndex returns the current buffering slot index.
func (s *FrameScheduler) FrameIndex() int {
	return s.index
}

// BeginFrame blocks until the GPU has finished the previous use of the
// current slot's resources, then resets the slot's command allocator for
// recording. This is the sole steady-state backpressure mechanism.
func (s *FrameScheduler) BeginFrame() error {
	if s.closed {
		return ErrSchedulerClosed
	}

	frame := &s.frames[s.index]
	if s.graphicsFence.CompletedValue() < frame.FenceValue {
		if err := s.graphicsFence.Wait(frame.FenceValue, s.timeout); err != nil {
			return fmt.Errorf("%w: graphics fence stuck below %d: %v", ErrDeviceLost, frame.FenceValue, err)
		}
	}

	if frame.Allocator != nil {
		if err := frame.Allocator.Reset(); err != nil {
			return fmt.Errorf("render: resetting frame %d allocator: %w", s.index, err)
		}
	}
	return nil
}

// Execute submits the recorded command list to the graphics queue.
func (s *FrameScheduler) Execute() error {
	if s.closed {
		return ErrSchedulerClosed
	}
	if err := s.graphics.Submit(); err != nil {
		return fmt.Errorf("render: graphics submit: %w", err)
	}
	return nil
}

// Present swaps the displayed buffer. Presentation failure is device
// loss: fatal for this instance, propagated for a full rebuild.
func (s *FrameScheduler) Present() error {
	if s.closed {
		return ErrSchedulerClosed
	}
	next, err := s.present.Present()
	if err != nil {
		return fmt.Errorf("%w: present failed: %v", ErrDeviceLost, err)
	}
	if next >= 0 {
		s.pendingIndex = next % FrameCount
		s.hasPending = true
	}
	return nil
}

// MoveToNextFrame signals the graphics fence with a monotonically
// increasing value, stores it as the current slot's watermark, and
// advances to the back-buffer index the presentation engine reported.
func (s *FrameScheduler) MoveToNextFrame() error {
	if s.closed {
		return ErrSchedulerClosed
	}

	value := s.nextFenceValue
	s.nextFenceValue++
	s.graphics.Signal(s.graphicsFence, value)
	s.frames[s.index].FenceValue = value

	if s.hasPending {
		s.index = s.pendingIndex
		s.hasPending = false
	} else {
		s.index = (s.index + 1) % FrameCount
	}
	return nil
}

// WaitForGpu signals and waits every configured queue's fence, draining
// all in-flight work. Unbounded in intent; used only at teardown and
// resize, never in the hot path. The diagnostic timeout still applies so
// a wedged device surfaces as ErrDeviceLost instead of a hang.
func (s *FrameScheduler) WaitForGpu() error {
	type pair struct {
		q Queue
		f Fence
	}
	pairs := []pair{{s.graphics, s.graphicsFence}}
	if s.compute != nil {
		pairs = append(pairs, pair{s.compute, s.computeFence})
	}
	if s.copyq != nil {
		pairs = append(pairs, pair{s.copyq, s.copyFence})
	}

	for _, p := range pairs {
		value := s.nextFenceValue
		s.nextFenceValue++
		p.q.Signal(p.f, value)
		if err := p.f.Wait(value, s.timeout); err != nil {
			return fmt.Errorf("%w: drain wait failed: %v", ErrDeviceLost, err)
		}
	}

	// Every slot's prior work is now complete.
	for i := range s.frames {
		s.frames[i].FenceValue = 0
	}
	return nil
}

// Close drains the GPU and marks the scheduler unusable. Render targets
// are borrowed from the swapchain, so dropping the references suffices.
func (s *FrameScheduler) Close() error {
	if s.closed {
		return nil
	}
	err := s.WaitForGpu()
	s.closed = true
	for i := range s.frames {
		s.frames[i].RenderTarget = nil
	}
	return err
}
