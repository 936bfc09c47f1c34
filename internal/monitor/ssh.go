package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/trace"
	"github.com/bnema/waycore/internal/ui"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	gossh "golang.org/x/crypto/ssh"
)

// sessionBuffer is how many records a slow SSH viewer may lag behind.
const sessionBuffer = 256

// SSHOptions configure the SSH monitor.
type SSHOptions struct {
	Address     string
	HostKeyPath string
	// AuthorizedKeysPath lists the keys allowed to connect. Empty accepts
	// any key.
	AuthorizedKeysPath string
	// MaxSessions limits concurrent viewers. 0 means unlimited.
	MaxSessions int
}

// SSHServer streams hub records to SSH sessions, one formatted event per
// line. The session command selects a filter: `client <id>`,
// `interface <name>`, or nothing for every event.
type SSHServer struct {
	hub        *Hub
	opts       SSHOptions
	authorized []gossh.PublicKey
	server     *ssh.Server
	listener   net.Listener

	mu       sync.Mutex
	sessions map[string]ssh.Session

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSSHServer creates the monitor and loads the authorized keys.
func NewSSHServer(hub *Hub, opts SSHOptions) (*SSHServer, error) {
	s := &SSHServer{
		hub:      hub,
		opts:     opts,
		sessions: make(map[string]ssh.Session),
		stop:     make(chan struct{}),
	}

	if opts.AuthorizedKeysPath != "" {
		keys, err := loadAuthorizedKeys(opts.AuthorizedKeysPath)
		if err != nil {
			return nil, err
		}
		s.authorized = keys
	}

	if err := os.MkdirAll(filepath.Dir(opts.HostKeyPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create host key directory: %w", err)
	}

	server, err := wish.NewServer(
		wish.WithHostKeyPath(opts.HostKeyPath),
		wish.WithPublicKeyAuth(s.publicKeyAuth),
		wish.WithMiddleware(
			s.streamHandler(),
			s.loggingMiddleware(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}
	s.server = server

	return s, nil
}

func loadAuthorizedKeys(path string) ([]gossh.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read authorized keys: %w", err)
	}

	var keys []gossh.PublicKey
	for len(strings.TrimSpace(string(data))) > 0 {
		key, _, _, rest, err := gossh.ParseAuthorizedKey(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse authorized keys %s: %w", path, err)
		}
		keys = append(keys, key)
		data = rest
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no keys in %s", path)
	}
	return keys, nil
}

// Start listens on the configured address and serves until ctx is done or
// Stop is called.
func (s *SSHServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Address, err)
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		logger.Infof("SSH monitor listening on %s", listener.Addr())
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Errorf("SSH monitor error: %v", err)
		}
	}()

	// Handle context cancellation
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stop:
		}
	}()

	if len(s.authorized) == 0 {
		logger.Warn("SSH monitor accepts any public key")
	}
	return nil
}

// Addr returns the listening address once started.
func (s *SSHServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Sessions returns the number of connected viewers.
func (s *SSHServer) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stop shuts the monitor down and disconnects every viewer.
func (s *SSHServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)

		// Close drops viewer connections immediately
		if err := s.server.Close(); err != nil {
			logger.Debugf("Closing SSH monitor: %v", err)
		}

		s.mu.Lock()
		for _, sess := range s.sessions {
			_ = sess.Close()
		}
		s.sessions = make(map[string]ssh.Session)
		s.mu.Unlock()

		s.wg.Wait()
	})
}

func (s *SSHServer) publicKeyAuth(ctx ssh.Context, key ssh.PublicKey) bool {
	fingerprint := gossh.FingerprintSHA256(key)
	addr := ctx.RemoteAddr().String()

	if len(s.authorized) == 0 {
		logger.Debugf("Accepting SSH key=%s addr=%s", fingerprint, addr)
		return true
	}
	for _, allowed := range s.authorized {
		if ssh.KeysEqual(key, allowed) {
			logger.Debugf("SSH key authorized key=%s addr=%s", fingerprint, addr)
			return true
		}
	}

	logger.Infof("SSH key denied key=%s addr=%s", fingerprint, addr)
	return false
}

func (s *SSHServer) loggingMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			logger.Debugf("SSH monitor session started: user=%s addr=%s", sess.User(), sess.RemoteAddr())
			h(sess)
			logger.Debugf("SSH monitor session ended: addr=%s", sess.RemoteAddr())
		}
	}
}

func (s *SSHServer) streamHandler() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			filter, err := parseFilter(sess.Command())
			if err != nil {
				fmt.Fprintln(sess.Stderr(), err)
				_ = sess.Exit(2)
				return
			}

			if !s.track(sess) {
				logger.Infof("Rejecting monitor session - max sessions reached addr=%s", sess.RemoteAddr())
				fmt.Fprintln(sess, "Server already has the maximum number of monitor sessions")
				_ = sess.Exit(1)
				return
			}
			defer s.untrack(sess)

			records, cancel := s.hub.Subscribe(sessionBuffer)
			defer cancel()

			fmt.Fprintf(sess, "waycore event monitor: %s\n", filter)
			s.stream(sess, records, filter)
			h(sess)
		}
	}
}

func (s *SSHServer) stream(sess ssh.Session, records <-chan trace.Record, filter recordFilter) {
	for {
		select {
		case <-sess.Context().Done():
			return
		case <-s.stop:
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			if !filter.match(rec) {
				continue
			}
			if _, err := fmt.Fprintln(sess, ui.FormatRecord(rec)); err != nil {
				return
			}
		}
	}
}

func (s *SSHServer) track(sess ssh.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stop:
		return false
	default:
	}
	if s.opts.MaxSessions > 0 && len(s.sessions) >= s.opts.MaxSessions {
		return false
	}
	s.sessions[sess.Context().SessionID()] = sess
	return true
}

func (s *SSHServer) untrack(sess ssh.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.Context().SessionID())
}

// recordFilter selects the records a session sees.
type recordFilter struct {
	client resource.ClientID
	iface  string
}

func parseFilter(args []string) (recordFilter, error) {
	switch {
	case len(args) == 0:
		return recordFilter{}, nil
	case len(args) == 2 && args[0] == "client":
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil || id == 0 {
			return recordFilter{}, fmt.Errorf("invalid client id %q", args[1])
		}
		return recordFilter{client: resource.ClientID(id)}, nil
	case len(args) == 2 && args[0] == "interface":
		return recordFilter{iface: args[1]}, nil
	default:
		return recordFilter{}, fmt.Errorf("usage: [client <id> | interface <name>]")
	}
}

func (f recordFilter) match(rec trace.Record) bool {
	if f.client != 0 && rec.Object.Client != f.client {
		return false
	}
	return f.iface == "" || rec.Interface == f.iface
}

func (f recordFilter) String() string {
	switch {
	case f.client != 0:
		return fmt.Sprintf("client %d", f.client)
	case f.iface != "":
		return f.iface + " events"
	default:
		return "all events"
	}
}
