//go:build !windows

package transport

import (
	"errors"
	"net"
)

// newPlatformListener has no non-Windows implementation -- gwbridge is
// injected into a Windows host process (spec §1) and the named-pipe
// transport is a Win32-only primitive. Building on another GOOS compiles
// cleanly (so tests for serveClient's OS-agnostic half still run) but
// Start fails immediately.
func newPlatformListener(pipeName string) (listener, error) {
	return nil, errors.New("transport: named pipes are only supported on windows")
}

// DialClient has no non-Windows implementation; see newPlatformListener.
func DialClient(pipeName string) (net.Conn, error) {
	return nil, errors.New("transport: named pipes are only supported on windows")
}
