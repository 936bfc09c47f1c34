package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/trace"
	"github.com/bnema/waycore/internal/wire"
)

// defaultWriteTimeout bounds how long one event write may block. Writes
// happen under the dispatch lock, so a client that stops reading stalls
// every other client for at most this long, once: the connection is marked
// broken and later events to it are discarded without writing.
const defaultWriteTimeout = 500 * time.Millisecond

var errConnBroken = errors.New("connection broken")

// connSink writes events to a client connection, copying them to the trace
// stream and the publisher when configured.
type connSink struct {
	mu        sync.Mutex
	nc        net.Conn
	trace     io.Writer
	publisher Publisher
	timeout   time.Duration
	broken    bool
}

func newConnSink(nc net.Conn, opts Options) *connSink {
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &connSink{nc: nc, trace: opts.Trace, publisher: opts.Publisher, timeout: timeout}
}

// Send implements resource.Sink.
func (s *connSink) Send(obj *resource.Object, msg *wire.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trace != nil || s.publisher != nil {
		s.record(obj, msg)
	}

	if s.broken {
		return errConnBroken
	}

	if err := s.nc.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		logger.Debugf("Failed to set write deadline: %v", err)
	}
	if _, err := msg.WriteTo(s.nc); err != nil {
		// Closing unblocks the reader, which then closes the client.
		s.broken = true
		s.nc.Close()
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (s *connSink) record(obj *resource.Object, msg *wire.Message) {
	rec, err := trace.NewRecord(obj, msg)
	if err != nil {
		logger.Debugf("Not recording event for %s: %v", obj, err)
		return
	}
	if s.publisher != nil {
		s.publisher.Publish(rec)
	}
	if s.trace != nil {
		if err := trace.WriteRecord(s.trace, rec); err != nil {
			logger.Debugf("Failed to write trace record: %v", err)
		}
	}
}
