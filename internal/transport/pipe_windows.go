//go:build windows

package transport

import (
	"errors"
	"net"
	"time"

	"golang.org/x/sys/windows"
)

const pipeBufferSize = 4096

var errReadWriteTimeout = errors.New("transport: named pipe i/o deadline exceeded")

type namedPipeListener struct {
	name string
}

func newPlatformListener(pipeName string) (listener, error) {
	return &namedPipeListener{name: pipeName}, nil
}

// DialClient opens a client-side connection to an already-running bridge's
// named pipe, for use by out-of-process tooling (cmd/gwbridgectl) rather
// than by the transport server itself.
func DialClient(pipeName string) (net.Conn, error) {
	pathPtr, err := windows.UTF16PtrFromString(pipeName)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, err
	}
	return &namedPipeConn{handle: handle}, nil
}

// Accept creates one pipe instance per call and blocks until a client
// connects -- PIPE_UNLIMITED_INSTANCES lets multiple clients be waited on
// concurrently by the accept loop's caller, matching spec §4.1's
// unlimited-client-instances requirement.
func (l *namedPipeListener) Accept() (net.Conn, error) {
	pathPtr, err := windows.UTF16PtrFromString(l.name)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateNamedPipe(
		pathPtr,
		windows.PIPE_ACCESS_DUPLEX,
		windows.PIPE_TYPE_BYTE|windows.PIPE_READMODE_BYTE|windows.PIPE_WAIT,
		windows.PIPE_UNLIMITED_INSTANCES,
		pipeBufferSize,
		pipeBufferSize,
		0,
		nil,
	)
	if err != nil {
		return nil, err
	}
	if err := windows.ConnectNamedPipe(handle, nil); err != nil && err != windows.ERROR_PIPE_CONNECTED {
		windows.CloseHandle(handle)
		return nil, err
	}
	return &namedPipeConn{handle: handle}, nil
}

func (l *namedPipeListener) Close() error { return nil }

// namedPipeConn wraps a connected pipe instance as a net.Conn. Deadlines
// are enforced in Go rather than via overlapped I/O: ReadFile/WriteFile
// run on a background goroutine and the call returns early on timeout,
// leaving that goroutine to finish (or fail) on its own. A true
// CancelIoEx-based cancellation would free it immediately; tracked as a
// follow-up, not required for the worker-timeout contract to hold.
type namedPipeConn struct {
	handle        windows.Handle
	readDeadline  time.Time
	writeDeadline time.Time
}

type ioResult struct {
	n   int
	err error
}

func withDeadline(deadline time.Time, fn func() (int, error)) (int, error) {
	if deadline.IsZero() {
		return fn()
	}
	ch := make(chan ioResult, 1)
	go func() {
		n, err := fn()
		ch <- ioResult{n, err}
	}()
	select {
	case r := <-ch:
		return r.n, r.err
	case <-time.After(time.Until(deadline)):
		return 0, errReadWriteTimeout
	}
}

func (c *namedPipeConn) Read(p []byte) (int, error) {
	return withDeadline(c.readDeadline, func() (int, error) {
		var n uint32
		err := windows.ReadFile(c.handle, p, &n, nil)
		return int(n), err
	})
}

func (c *namedPipeConn) Write(p []byte) (int, error) {
	return withDeadline(c.writeDeadline, func() (int, error) {
		var n uint32
		err := windows.WriteFile(c.handle, p, &n, nil)
		return int(n), err
	})
}

func (c *namedPipeConn) Close() error {
	windows.DisconnectNamedPipe(c.handle)
	return windows.CloseHandle(c.handle)
}

func (c *namedPipeConn) LocalAddr() net.Addr  { return pipeAddr{} }
func (c *namedPipeConn) RemoteAddr() net.Addr { return pipeAddr{} }

func (c *namedPipeConn) SetDeadline(t time.Time) error {
	c.readDeadline = t
	c.writeDeadline = t
	return nil
}

func (c *namedPipeConn) SetReadDeadline(t time.Time) error {
	c.readDeadline = t
	return nil
}

func (c *namedPipeConn) SetWriteDeadline(t time.Time) error {
	c.writeDeadline = t
	return nil
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "named-pipe" }
