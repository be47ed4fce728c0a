//go:build linux

package socket

import "golang.org/x/sys/unix"

// applyPlatformOptions applies Linux-specific connection options.
func applyPlatformOptions(fd int, cfg *Config) {
	// TCP_QUICKACK is not sticky; the kernel clears it after the next ACK.
	if cfg.QuickAck {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
	}
}

// applyListenerOptions applies Linux-specific listener options.
func applyListenerOptions(fd int, cfg *Config) {
	if cfg.DeferAccept {
		// seconds the kernel waits for data before handing over the connection
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 5)
	}
}
