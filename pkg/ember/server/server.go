// Package server runs the ember connection pipeline: an accept loop that
// hands every connection to its own goroutine, the per-connection state
// machine, configuration and prometheus metrics.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/watt-toolkit/ember/pkg/ember/socket"
)

// ErrServerClosed is returned by Serve and ListenAndServe after Close.
var ErrServerClosed = errors.New("server: closed")

// Server accepts connections and serves each on its own goroutine.
type Server struct {
	config  Config
	handler Handler

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}

	closed atomic.Bool
	wg     sync.WaitGroup
}

// New creates a server. Zero fields of config take their defaults.
func New(config Config, handler Handler) *Server {
	if handler == nil {
		panic("server: Handler is required")
	}
	return &Server{
		config:  config.withDefaults(),
		handler: handler,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.config
}

// ListenAndServe listens on the configured address and serves requests.
func (s *Server) ListenAndServe() error {
	l, err := socket.Listen(context.Background(), s.config.Addr, s.config.Socket)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections on l until Close. It never waits for a
// connection to finish before accepting the next one.
//
// Accept errors (EMFILE, timeouts) are logged and retried with a capped
// backoff until Close.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	log := s.config.Logger.WithField("addr", l.Addr().String())
	log.Info("Server listening")

	var backoff time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			// A listener closed behind our back never recovers
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			backoff = nextBackoff(backoff)
			log.WithError(err).WithField("retry_in", backoff).Error("Accept failed")
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if err := socket.Apply(conn, s.config.Socket); err != nil {
			log.WithError(err).Debug("Socket tuning failed")
		}

		if !s.track(conn) {
			conn.Close()
			return ErrServerClosed
		}
		go s.serveConn(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.untrack(conn)

	s.config.Metrics.connOpened()
	defer s.config.Metrics.connClosed()

	NewConnection(conn, s.config, s.handler).Serve()
}

// ServeConn serves a single connection on the calling goroutine.
func (s *Server) ServeConn(conn net.Conn) {
	if !s.track(conn) {
		conn.Close()
		return
	}
	s.serveConn(conn)
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// Close stops the accept loop, closes every open connection and waits for
// their goroutines to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if !s.closed.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil
	}

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}
