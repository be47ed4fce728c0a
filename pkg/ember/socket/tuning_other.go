//go:build !unix

package socket

import "errors"

var errUnsupported = errors.New("socket: option inspection not supported on this platform")

func controlListener(fd uintptr, cfg *Config) error { return nil }

func applyConn(fd uintptr, cfg *Config) error { return nil }

// ReuseAddr is not supported on this platform.
func ReuseAddr(fd uintptr) (bool, error) { return false, errUnsupported }

// NoDelay is not supported on this platform.
func NoDelay(fd uintptr) (bool, error) { return false, errUnsupported }
