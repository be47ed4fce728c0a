//go:build unix && !linux

package socket

// applyPlatformOptions is a no-op on platforms without specific options.
func applyPlatformOptions(fd int, cfg *Config) {}

// applyListenerOptions is a no-op on platforms without specific options.
func applyListenerOptions(fd int, cfg *Config) {}
