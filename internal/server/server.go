// Package server exposes a compositor on a unix socket speaking the display
// wire protocol.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/waycore/internal/compositor"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/trace"
	"github.com/bnema/waycore/internal/wire"
)

// Options configure a Server.
type Options struct {
	SocketPath string
	// MaxClients limits concurrent connections. 0 means unlimited.
	MaxClients int
	// Trace receives every event sent to socket clients as framed trace
	// records. Nil disables tracing.
	Trace io.Writer
	// Publisher receives every event sent to socket clients, for live
	// viewers. May be nil.
	Publisher Publisher
	// WriteTimeout bounds a single event write to a client that is not
	// reading. 0 selects 500ms.
	WriteTimeout time.Duration
}

// Publisher is told about every event sent to a client.
type Publisher interface {
	Publish(rec trace.Record)
}

// Server accepts display connections and feeds their requests to one
// compositor. Requests from all connections are dispatched one at a time.
type Server struct {
	comp *compositor.Compositor
	opts Options

	// dispatchMu serializes every call into the compositor
	dispatchMu sync.Mutex

	mu       sync.Mutex
	listener net.Listener
	conns    map[resource.ClientID]*conn
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	running  bool
}

type conn struct {
	nc     net.Conn
	client *resource.Client
}

// New creates a server for comp.
func New(comp *compositor.Compositor, opts Options) (*Server, error) {
	if opts.SocketPath == "" {
		return nil, fmt.Errorf("socket path must not be empty")
	}
	if opts.MaxClients < 0 {
		return nil, fmt.Errorf("max clients must not be negative")
	}
	return &Server{
		comp:  comp,
		opts:  opts,
		conns: make(map[resource.ClientID]*conn),
	}, nil
}

// SocketPath returns the path clients connect to.
func (s *Server) SocketPath() string { return s.opts.SocketPath }

// Start listens on the socket and serves connections until ctx is done or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	// Remove a stale socket left by a previous run
	if err := os.RemoveAll(s.opts.SocketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.opts.SocketPath), 0700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.opts.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}

	// Set socket permissions (user only)
	if err := os.Chmod(s.opts.SocketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.acceptConnections(ctx)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		listener.Close()
	}()

	logger.Infof("Display socket listening at %s", s.opts.SocketPath)
	return nil
}

// Stop closes the listener and every connection, and waits for the
// connection handlers to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.listener.Close()
	for _, c := range s.conns {
		c.nc.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	// Clean up socket file
	os.RemoveAll(s.opts.SocketPath)

	logger.Info("Display socket stopped")
}

// Do runs fn with exclusive access to the compositor, between requests.
// fn must not call back into the server.
func (s *Server) Do(fn func(c *compositor.Compositor)) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	fn(s.comp)
}

// Clients returns the connected clients.
func (s *Server) Clients() []*resource.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := make([]*resource.Client, 0, len(s.conns))
	for _, c := range s.conns {
		clients = append(clients, c.client)
	}
	return clients
}

func (s *Server) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Errorf("Failed to accept connection: %v", err)
			continue
		}

		c, ok := s.track(nc)
		if !ok {
			logger.Warn("Rejecting connection, client limit reached", "max_clients", s.opts.MaxClients)
			nc.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, c)
	}
}

// track registers a new connection unless the server is full or stopping.
func (s *Server) track(nc net.Conn) (*conn, bool) {
	s.mu.Lock()
	full := !s.running || (s.opts.MaxClients > 0 && len(s.conns) >= s.opts.MaxClients)
	s.mu.Unlock()
	if full {
		return nil, false
	}

	var client *resource.Client
	s.Do(func(comp *compositor.Compositor) {
		client = comp.Accept(newConnSink(nc, s.opts))
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.Do(func(*compositor.Compositor) { client.Close() })
		return nil, false
	}
	c := &conn{nc: nc, client: client}
	s.conns[client.ID()] = c
	return c, true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c.client.ID())
}

// handleConnection reads requests until the peer hangs up or commits a
// protocol error, then destroys everything the client owned.
func (s *Server) handleConnection(ctx context.Context, c *conn) {
	defer s.wg.Done()
	defer c.nc.Close()
	defer s.untrack(c)
	defer s.Do(func(*compositor.Compositor) { c.client.Close() })

	log := logger.With("client", c.client.ID())
	log.Debug("Display connection established")

	r := bufio.NewReader(c.nc)
	for {
		msg, err := wire.ReadMessage(r)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Debug("Connection closed or read error", "error", err)
			}
			return
		}

		s.dispatchMu.Lock()
		err = c.client.Dispatch(msg)
		alive := c.client.Alive()
		s.dispatchMu.Unlock()

		if err != nil {
			log.Debug("Request failed", "error", err)
		}
		if !alive {
			return
		}
	}
}
