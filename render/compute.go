package render

import (
	"errors"
	"fmt"
	"time"
)

// Compute dispatch errors.
var (
	// ErrComputeUnavailable is returned when dispatching without a
	// configured compute queue. Callers fall back to the CPU path.
	ErrComputeUnavailable = errors.New("render: compute queue unavailable")
)

// ComputePass records one compute dispatch: grid-cell layout or glyph
// composition work submitted to the compute queue.
type ComputePass interface {
	// Dispatch records the workgroup dispatch into the compute queue's
	// open command stream.
	Dispatch(groupsX, groupsY, groupsZ uint32) error
}

// ComputeDispatcher offloads grid generation and glyph composition to
// the compute queue, synchronized against the graphics queue via its own
// fence so compute work never serializes behind graphics submissions.
//
// Cross-queue rule: atlas regions written by compute this frame must be
// fenced before the graphics queue samples them. GraphicsWaitValue
// returns the fence value the graphics queue has to wait for.
type ComputeDispatcher struct {
	queue Queue
	fence Fence
	pass  ComputePass

	nextValue  uint64
	signaled   uint64
	timeout    time.Duration
	dispatches uint64
}

// NewComputeDispatcher creates a dispatcher over a compute queue. Any of
// the arguments may be nil, producing a disabled dispatcher whose
// Dispatch returns ErrComputeUnavailable.
func NewComputeDispatcher(queue Queue, fence Fence, pass ComputePass) *ComputeDispatcher {
	return &ComputeDispatcher{
		queue:     queue,
		fence:     fence,
		pass:      pass,
		nextValue: 1,
		timeout:   DefaultFenceTimeout,
	}
}

// Enabled reports whether compute dispatch is available.
func (d *ComputeDispatcher) Enabled() bool {
	return d.queue != nil && d.fence != nil && d.pass != nil
}

// Dispatch records and submits one compute dispatch, then signals the
// compute fence behind it. The returned value is what the graphics queue
// must wait for before consuming the results.
func (d *ComputeDispatcher) Dispatch(groupsX, groupsY, groupsZ uint32) (uint64, error) {
	if !d.Enabled() {
		return 0, ErrComputeUnavailable
	}

	if err := d.pass.Dispatch(groupsX, groupsY, groupsZ); err != nil {
		return 0, fmt.Errorf("render: compute dispatch: %w", err)
	}
	if err := d.queue.Submit(); err != nil {
		return 0, fmt.Errorf("render: compute submit: %w", err)
	}

	value := d.nextValue
	d.nextValue++
	d.queue.Signal(d.fence, value)
	d.signaled = value
	d.dispatches++
	return value, nil
}

// GraphicsWaitValue returns the latest signaled fence value, zero when
// no dispatch has happened yet (nothing to wait for).
func (d *ComputeDispatcher) GraphicsWaitValue() uint64 {
	return d.signaled
}

// Fence returns the compute fence the graphics queue waits on.
func (d *ComputeDispatcher) Fence() Fence {
	return d.fence
}

// WaitForIdle blocks until all dispatched compute work completed.
// Timeout maps to device loss like every other fence wait.
func (d *ComputeDispatcher) WaitForIdle() error {
	if !d.Enabled() || d.signaled == 0 {
		return nil
	}
	if err := d.fence.Wait(d.signaled, d.timeout); err != nil {
		return fmt.Errorf("%w: compute fence stuck below %d: %v", ErrDeviceLost, d.signaled, err)
	}
	return nil
}

// Dispatches returns how many dispatches were submitted.
func (d *ComputeDispatcher) Dispatches() uint64 {
	return d.dispatches
}
