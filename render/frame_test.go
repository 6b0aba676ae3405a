package render

import (
	"errors"
	"testing"
	"time"
)

// fakeQueue records signal requests; the test plays the GPU by
// completing them explicitly.
type fakeQueue struct {
	submits int
	signals []uint64

	// autoComplete immediately completes every signal, simulating a GPU
	// that keeps up with the CPU.
	autoComplete bool
}

func (q *fakeQueue) Submit() error { q.submits++; return nil }

func (q *fakeQueue) Signal(f Fence, value uint64) {
	q.signals = append(q.signals, value)
	if q.autoComplete {
		f.Signal(value)
	}
}

type fakeAllocator struct {
	resets int
}

func (a *fakeAllocator) Reset() error { a.resets++; return nil }

type fakePresenter struct {
	presents int
	fail     bool
}

func (p *fakePresenter) Present() (int, error) {
	if p.fail {
		return -1, errors.New("device removed")
	}
	p.presents++
	return (p.presents) % FrameCount, nil
}

func newTestScheduler(t *testing.T, gpu *fakeQueue, fence Fence, pres *fakePresenter) (*FrameScheduler, [FrameCount]*fakeAllocator) {
	t.Helper()

	var allocs [FrameCount]*fakeAllocator
	var cfg SchedulerConfig
	cfg.Graphics = gpu
	cfg.GraphicsFence = fence
	cfg.Present = pres
	cfg.FenceTimeout = 200 * time.Millisecond
	for i := range allocs {
		allocs[i] = &fakeAllocator{}
		cfg.Allocators[i] = allocs[i]
		cfg.RenderTargets[i] = i
	}

	s, err := NewFrameScheduler(cfg)
	if err != nil {
		t.Fatalf("NewFrameScheduler: %v", err)
	}
	return s, allocs
}

func renderOneFrame(t *testing.T, s *FrameScheduler) {
	t.Helper()
	if err := s.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if err := s.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := s.Present(); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if err := s.MoveToNextFrame(); err != nil {
		t.Fatalf("MoveToNextFrame: %v", err)
	}
}

func TestSchedulerSteadyState(t *testing.T) {
	gpu := &fakeQueue{autoComplete: true}
	fence := NewCPUFence()
	pres := &fakePresenter{}
	s, allocs := newTestScheduler(t, gpu, fence, pres)

	for i := 0; i < 9; i++ {
		renderOneFrame(t, s)
	}

	if gpu.submits != 9 || pres.presents != 9 {
		t.Errorf("submits=%d presents=%d, want 9/9", gpu.submits, pres.presents)
	}

	// Fence values must increase monotonically.
	for i := 1; i < len(gpu.signals); i++ {
		if gpu.signals[i] <= gpu.signals[i-1] {
			t.Fatalf("fence values not monotonic: %v", gpu.signals)
		}
	}

	total := 0
	for _, a := range allocs {
		total += a.resets
	}
	if total != 9 {
		t.Errorf("allocator resets = %d, want 9 (one per frame)", total)
	}
}

// A slot's allocator is never reused until the graphics fence passes the
// watermark recorded at that slot's last MoveToNextFrame.
func TestSchedulerBlocksOnSlotReuse(t *testing.T) {
	gpu := &fakeQueue{} // GPU never completes on its own
	fence := NewCPUFence()
	pres := &fakePresenter{}
	s, allocs := newTestScheduler(t, gpu, fence, pres)

	// First pass over all slots proceeds without blocking: their
	// watermarks are zero.
	seen := map[int]bool{}
	for i := 0; i < FrameCount; i++ {
		seen[s.FrameIndex()] = true
		renderOneFrame(t, s)
	}
	if len(seen) != FrameCount {
		t.Fatalf("first %d frames used %d distinct slots", FrameCount, len(seen))
	}

	// The next frame reuses a slot whose fence value is still pending,
	// so BeginFrame must block until the GPU catches up.
	reusedSlot := s.FrameIndex()
	resetsBefore := allocs[reusedSlot].resets
	pending := s.Frame().FenceValue
	if pending == 0 {
		t.Fatal("reused slot has no pending fence value")
	}

	done := make(chan error, 1)
	go func() { done <- s.BeginFrame() }()

	select {
	case err := <-done:
		t.Fatalf("BeginFrame returned (%v) before the GPU finished the slot's prior frame", err)
	case <-time.After(30 * time.Millisecond):
	}
	if allocs[reusedSlot].resets != resetsBefore {
		t.Fatal("allocator reset while its commands were still in flight")
	}

	fence.Signal(pending)
	if err := <-done; err != nil {
		t.Fatalf("BeginFrame after catch-up: %v", err)
	}
	if allocs[reusedSlot].resets != resetsBefore+1 {
		t.Errorf("allocator resets = %d, want %d", allocs[reusedSlot].resets, resetsBefore+1)
	}
}

// A fence that stops advancing surfaces as device loss, not a hang.
func TestSchedulerFenceTimeoutIsDeviceLoss(t *testing.T) {
	gpu := &fakeQueue{}
	fence := NewCPUFence()
	pres := &fakePresenter{}
	s, _ := newTestScheduler(t, gpu, fence, pres)

	for i := 0; i < FrameCount; i++ {
		renderOneFrame(t, s)
	}

	err := s.BeginFrame() // slot watermark never satisfied
	if !errors.Is(err, ErrDeviceLost) {
		t.Fatalf("err = %v, want ErrDeviceLost", err)
	}
}

func TestSchedulerPresentFailureIsDeviceLoss(t *testing.T) {
	gpu := &fakeQueue{autoComplete: true}
	s, _ := newTestScheduler(t, gpu, NewCPUFence(), &fakePresenter{fail: true})

	if err := s.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if err := s.Present(); !errors.Is(err, ErrDeviceLost) {
		t.Fatalf("err = %v, want ErrDeviceLost", err)
	}
}

// WaitForGpu signals and waits every configured queue's fence.
func TestSchedulerWaitForGpuDrainsAllQueues(t *testing.T) {
	gpu := &fakeQueue{autoComplete: true}
	compute := &fakeQueue{autoComplete: true}
	copyq := &fakeQueue{autoComplete: true}

	var cfg SchedulerConfig
	cfg.Graphics = gpu
	cfg.Compute = compute
	cfg.Copy = copyq
	cfg.Present = &fakePresenter{}
	cfg.GraphicsFence = NewCPUFence()
	cfg.ComputeFence = NewCPUFence()
	cfg.CopyFence = NewCPUFence()
	cfg.FenceTimeout = time.Second
	for i := 0; i < FrameCount; i++ {
		cfg.Allocators[i] = &fakeAllocator{}
	}

	s, err := NewFrameScheduler(cfg)
	if err != nil {
		t.Fatalf("NewFrameScheduler: %v", err)
	}

	renderOneFrame(t, s)
	if err := s.WaitForGpu(); err != nil {
		t.Fatalf("WaitForGpu: %v", err)
	}

	if len(compute.signals) != 1 || len(copyq.signals) != 1 {
		t.Errorf("auxiliary queues signaled %d/%d times, want 1/1", len(compute.signals), len(copyq.signals))
	}
	// Drained slots must not block the next frame.
	if err := s.BeginFrame(); err != nil {
		t.Errorf("BeginFrame after drain: %v", err)
	}
}

func TestSchedulerMissingQueueFenceRejected(t *testing.T) {
	var cfg SchedulerConfig
	cfg.Graphics = &fakeQueue{}
	cfg.GraphicsFence = NewCPUFence()
	cfg.Present = &fakePresenter{}
	cfg.Compute = &fakeQueue{} // no compute fence

	if _, err := NewFrameScheduler(cfg); err == nil {
		t.Fatal("scheduler accepted a compute queue without a fence")
	}
}

func TestSchedulerClose(t *testing.T) {
	gpu := &fakeQueue{autoComplete: true}
	s, _ := newTestScheduler(t, gpu, NewCPUFence(), &fakePresenter{})

	renderOneFrame(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.BeginFrame(); !errors.Is(err, ErrSchedulerClosed) {
		t.Errorf("BeginFrame after Close: err = %v, want ErrSchedulerClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
