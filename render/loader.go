package render

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ByteLoader is the asynchronous byte-range loader collaborator: an
// optional acceleration for streaming pre-rasterized glyph data from
// disk into upload buffers. It is never a correctness dependency; every
// call site falls back to the synchronous path when EnqueueRead returns
// false or Submit fails.
type ByteLoader interface {
	// EnqueueRead queues a read of length bytes at srcOffset of path
	// into dst at dstOffset. Returns false when the loader cannot take
	// the request (caller uses the sync path).
	EnqueueRead(path string, dst []byte, dstOffset int64, length int64, srcOffset int64) bool

	// Submit kicks off all enqueued reads.
	Submit() error

	// WaitForIdle blocks until every submitted read has completed.
	WaitForIdle() error
}

// SyncLoader is the mandatory fallback: it performs reads immediately on
// EnqueueRead with plain file I/O. Submit and WaitForIdle are no-ops
// since nothing is ever in flight.
type SyncLoader struct{}

// EnqueueRead implements ByteLoader by reading synchronously.
func (SyncLoader) EnqueueRead(path string, dst []byte, dstOffset, length, srcOffset int64) bool {
	if dstOffset < 0 || length <= 0 || dstOffset+length > int64(len(dst)) {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	if _, err := f.ReadAt(dst[dstOffset:dstOffset+length], srcOffset); err != nil && err != io.EOF {
		return false
	}
	return true
}

// Submit implements ByteLoader.
func (SyncLoader) Submit() error { return nil }

// WaitForIdle implements ByteLoader.
func (SyncLoader) WaitForIdle() error { return nil }

// AsyncLoader runs reads on a small worker pool, approximating a
// DirectStorage-style queue with plain goroutines. Reads enqueue until
// Submit, which dispatches them; WaitForIdle joins the in-flight set.
type AsyncLoader struct {
	mu      sync.Mutex
	pending []loaderRequest
	wg      sync.WaitGroup
	workers int

	errMu   sync.Mutex
	lastErr error
}

type loaderRequest struct {
	path      string
	dst       []byte
	dstOffset int64
	length    int64
	srcOffset int64
}

// NewAsyncLoader creates a loader dispatching up to workers concurrent
// reads. workers <= 0 defaults to 4.
func NewAsyncLoader(workers int) *AsyncLoader {
	if workers <= 0 {
		workers = 4
	}
	return &AsyncLoader{workers: workers}
}

// EnqueueRead implements ByteLoader.
func (l *AsyncLoader) EnqueueRead(path string, dst []byte, dstOffset, length, srcOffset int64) bool {
	if dstOffset < 0 || length <= 0 || dstOffset+length > int64(len(dst)) {
		return false
	}
	l.mu.Lock()
	l.pending = append(l.pending, loaderRequest{path, dst, dstOffset, length, srcOffset})
	l.mu.Unlock()
	return true
}

// Submit implements ByteLoader, dispatching all pending reads.
func (l *AsyncLoader) Submit() error {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	sem := make(chan struct{}, l.workers)
	for _, req := range batch {
		l.wg.Add(1)
		go func(req loaderRequest) {
			defer l.wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := readRange(req); err != nil {
				l.errMu.Lock()
				l.lastErr = err
				l.errMu.Unlock()
			}
		}(req)
	}
	return nil
}

// WaitForIdle implements ByteLoader. It returns the last read error, if
// any; callers treat a failure as "redo via the sync path", never fatal.
func (l *AsyncLoader) WaitForIdle() error {
	l.wg.Wait()

	l.errMu.Lock()
	err := l.lastErr
	l.lastErr = nil
	l.errMu.Unlock()
	return err
}

func readRange(req loaderRequest) error {
	f, err := os.Open(req.path)
	if err != nil {
		return fmt.Errorf("render: loader open %s: %w", req.path, err)
	}
	defer f.Close()

	if _, err := f.ReadAt(req.dst[req.dstOffset:req.dstOffset+req.length], req.srcOffset); err != nil && err != io.EOF {
		return fmt.Errorf("render: loader read %s: %w", req.path, err)
	}
	return nil
}
