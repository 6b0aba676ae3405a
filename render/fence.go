package render

import (
	"errors"
	"sync"
	"time"
)

// Fence errors.
var (
	// ErrFenceTimeout is returned when a fence wait expires. The frame
	// scheduler treats it as device loss rather than hanging the render
	// thread behind a wedged GPU.
	ErrFenceTimeout = errors.New("render: fence wait timed out")
)

// DefaultFenceTimeout bounds fence waits in the steady-state path. A GPU
// that has not advanced a fence in this long is considered lost.
const DefaultFenceTimeout = 5 * time.Second

// Fence is the CPU/GPU synchronization capability: a monotonically
// increasing completion counter. The GPU (or any producer) signals
// values; the CPU waits for them.
type Fence interface {
	// Signal marks all work up to value as complete. Values must be
	// signaled in increasing order.
	Signal(value uint64)

	// Wait blocks until CompletedValue() >= value or the timeout
	// expires (ErrFenceTimeout). A timeout <= 0 waits forever.
	Wait(value uint64, timeout time.Duration) error

	// CompletedValue returns the highest signaled value.
	CompletedValue() uint64
}

// CPUFence is a Fence backed by a condition variable. It stands in for a
// native GPU fence wherever work completion is driven from the CPU: the
// software backend, the copy queue's upload completions, and tests.
type CPUFence struct {
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
}

// NewCPUFence creates a fence with a completed value of zero.
func NewCPUFence() *CPUFence {
	f := &CPUFence{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Signal implements Fence. Signaling a value at or below the current
// completed value is a no-op, preserving monotonicity.
func (f *CPUFence) Signal(value uint64) {
	f.mu.Lock()
	if value > f.completed {
		f.completed = value
		f.cond.Broadcast()
	}
	f.mu.Unlock()
}

// Wait implements Fence.
func (f *CPUFence) Wait(value uint64, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.completed >= value {
		return nil
	}

	if timeout <= 0 {
		for f.completed < value {
			f.cond.Wait()
		}
		return nil
	}

	// sync.Cond has no timed wait; a timer goroutine broadcasts once at
	// the deadline so the loop below can observe it.
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer timer.Stop()

	for f.completed < value {
		if time.Now().After(deadline) {
			return ErrFenceTimeout
		}
		f.cond.Wait()
	}
	return nil
}

// CompletedValue implements Fence.
func (f *CPUFence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}
