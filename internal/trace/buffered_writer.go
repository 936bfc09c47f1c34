package trace

import (
	"errors"
	"io"
	"sync"
	"time"
)

var errWriterClosed = errors.New("trace writer closed")

// BatchWriter collects framed records in memory and hands them to the
// underlying writer in batches: when a batch would exceed maxSize, and
// otherwise every interval. The first write error is kept and returned by
// every later call.
type BatchWriter struct {
	mu      sync.Mutex
	w       io.Writer
	pending []byte
	maxSize int
	err     error
	closed  bool
	batches int
	written int64

	stop     chan struct{}
	loopDone chan struct{}
}

// NewBatchWriter starts a writer flushing to w at least every interval.
func NewBatchWriter(w io.Writer, interval time.Duration, maxSize int) *BatchWriter {
	bw := &BatchWriter{
		w:        w,
		pending:  make([]byte, 0, maxSize),
		maxSize:  maxSize,
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go bw.run(interval)
	return bw
}

// Write queues p. A frame larger than the batch size is written through.
func (bw *BatchWriter) Write(p []byte) (int, error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.closed {
		return 0, errWriterClosed
	}
	if bw.err != nil {
		return 0, bw.err
	}

	if len(bw.pending)+len(p) > bw.maxSize {
		if err := bw.flushLocked(); err != nil {
			return 0, err
		}
		if len(p) > bw.maxSize {
			return bw.writeLocked(p)
		}
	}
	bw.pending = append(bw.pending, p...)
	return len(p), nil
}

// Flush writes the pending batch now.
func (bw *BatchWriter) Flush() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.flushLocked()
}

// Stats returns how many batches and bytes reached the underlying writer.
func (bw *BatchWriter) Stats() (batches int, written int64) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.batches, bw.written
}

func (bw *BatchWriter) flushLocked() error {
	if bw.err != nil || len(bw.pending) == 0 {
		return bw.err
	}
	_, err := bw.writeLocked(bw.pending)
	bw.pending = bw.pending[:0]
	return err
}

func (bw *BatchWriter) writeLocked(p []byte) (int, error) {
	n, err := bw.w.Write(p)
	bw.written += int64(n)
	bw.batches++
	if err != nil {
		bw.err = err
	}
	return n, err
}

func (bw *BatchWriter) run(interval time.Duration) {
	defer close(bw.loopDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-bw.stop:
			return
		case <-ticker.C:
			// An error here is kept and reported by the next call
			_ = bw.Flush()
		}
	}
}

// Close stops the flush loop and writes what is left. The underlying
// writer stays open.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return bw.err
	}
	bw.closed = true
	bw.mu.Unlock()

	close(bw.stop)
	<-bw.loopDone
	return bw.Flush()
}
