// Package socket creates listeners and tunes accepted connections for ember.
//
// Listeners are opened with SO_REUSEADDR so a restarted server can bind
// while old connections linger in TIME_WAIT. Accepted TCP connections get
// TCP_NODELAY since every response is written in a single call.
// Platform-specific options live in tuning_linux.go.
package socket

import (
	"context"
	"net"
	"syscall"
)

// Config represents socket tuning configuration.
// Zero values mean "use system defaults".
type Config struct {
	// SO_REUSEADDR on the listening socket
	// Default: true
	ReuseAddr bool

	// TCP_NODELAY - Disable Nagle's algorithm for low latency
	// Default: true
	NoDelay bool

	// SO_KEEPALIVE on accepted connections
	// Default: false
	KeepAlive bool

	// SO_RCVBUF - Receive buffer size in bytes
	// Default: 0 (system default)
	RecvBuffer int

	// SO_SNDBUF - Send buffer size in bytes
	// Default: 0 (system default)
	SendBuffer int

	// TCP_QUICKACK - Send immediate ACKs (Linux only)
	// Default: false
	QuickAck bool

	// TCP_DEFER_ACCEPT - Don't wake the accept loop until data arrives (Linux only)
	// Default: false
	DeferAccept bool
}

// DefaultConfig returns the configuration ember uses unless told otherwise.
func DefaultConfig() *Config {
	return &Config{
		ReuseAddr: true,
		NoDelay:   true,
	}
}

// Listen opens a TCP listener on addr with the listener options of cfg
// applied before bind.
func Listen(ctx context.Context, addr string, cfg *Config) (net.Listener, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = controlListener(fd, cfg)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(ctx, "tcp", addr)
}

// Apply applies socket tuning options to an accepted connection.
// Connections that are not TCP are left untouched.
//
// Only a TCP_NODELAY failure is reported; the remaining options are best
// effort.
func Apply(conn net.Conn, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	if err := rawConn.Control(func(fd uintptr) {
		sockErr = applyConn(fd, cfg)
	}); err != nil {
		return err
	}
	return sockErr
}
