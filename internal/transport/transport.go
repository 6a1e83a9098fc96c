// Package transport implements the named-pipe endpoint server (spec §4.1,
// §6): one accept loop, one worker goroutine per connected client, each
// worker looping read-frame/dispatch/write-frame until the client
// disconnects or a read/write exceeds its timeout. Grounded on the
// teacher's ipc.Server (accept loop + per-connection goroutine, joined on
// shutdown), generalized from a Unix socket to a Windows named pipe the
// way other_examples/NadeenUdantha-vram__pipes.go drives one, and from a
// bare sync.WaitGroup to golang.org/x/sync/errgroup, whose shared context
// the first worker error cancels. The accept loop consults that context
// only after Accept itself fails, so a worker error does not stop it.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gwnexus/bridge/internal/logging"
	"github.com/gwnexus/bridge/internal/wire"
)

// Default protocol timeouts, spec §4.1 -- used when New is given a zero
// duration, which callers that don't read internal/config do by default.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// Dispatcher turns one decoded request into one response. Satisfied by
// *internal/dispatch.Dispatcher; declared narrowly here so this package
// never imports dispatch.
type Dispatcher interface {
	Handle(req *wire.Request) *wire.Response
}

// listener is the platform-specific half: pipe_windows.go implements it
// over windows.CreateNamedPipe, pipe_stub.go refuses to on every other
// GOOS, the same per-OS split the teacher uses for peer-credential checks.
type listener interface {
	Accept() (net.Conn, error)
	Close() error
}

// Server owns the accept loop and every connected client's worker.
type Server struct {
	name string
	disp Dispatcher
	log  *logging.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
	maxClients   int

	ln       listener
	group    *errgroup.Group
	cancel   context.CancelFunc
	clients  atomic.Int32
	stopOnce sync.Once
}

// New creates a Server bound to pipeName, not yet listening. readTimeout
// and writeTimeout fall back to DefaultReadTimeout/DefaultWriteTimeout
// when zero; maxClients of 0 means unlimited (spec §4.1).
func New(pipeName string, disp Dispatcher, log *logging.Logger, readTimeout, writeTimeout time.Duration, maxClients int) *Server {
	if log == nil {
		log = logging.Discard
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Server{name: pipeName, disp: disp, log: log, readTimeout: readTimeout, writeTimeout: writeTimeout, maxClients: maxClients}
}

// Start opens the named pipe and begins accepting clients in the
// background. Returns once the listener is ready; Accept errors surface
// later through Stop's errgroup join.
func (s *Server) Start() error {
	ln, err := newPlatformListener(s.name)
	if err != nil {
		return err
	}
	s.ln = ln

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	s.group = g
	s.stopOnce = sync.Once{}

	g.Go(func() error { return s.acceptLoop(gctx) })
	s.log.Infof("transport: listening on %s", s.name)
	return nil
}

// Stop cancels the group's shared context and closes the listener; the
// accept loop returns once its Accept call fails after that. The
// named-pipe listener's Close does nothing, so an Accept already waiting
// in ConnectNamedPipe is not interrupted. Connected workers do not watch
// the context; each runs until its client disconnects or an I/O deadline
// passes. The group join runs in a
// background goroutine rather than inline: a ServerStop/ServerRestart/
// LoaderDetach request is dispatched from inside a serveClient worker
// that itself belongs to this same group (spec §4.1's one-worker-per-
// client model), so a synchronous s.group.Wait() here would deadlock
// that worker against its own membership. stopOnce makes repeated Stop
// calls against the same generation harmless; Start resets it for the
// next generation.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.ln != nil {
			_ = s.ln.Close()
		}
		if g := s.group; g != nil {
			go func() { _ = g.Wait() }()
		}
	})
}

// ClientCount reports the number of currently connected clients (spec
// §4.8 server-status).
func (s *Server) ClientCount() int {
	return int(s.clients.Load())
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}
		if s.maxClients > 0 && int(s.clients.Load()) >= s.maxClients {
			s.log.Warnf("transport: rejecting client, max_clients=%d already connected", s.maxClients)
			conn.Close()
			continue
		}
		s.group.Go(func() error {
			s.clients.Add(1)
			defer s.clients.Add(-1)
			defer conn.Close()
			return serveClient(conn, s.disp, s.log, s.readTimeout, s.writeTimeout)
		})
	}
}

// serveClient implements the per-client worker contract (spec §4.1): read
// exactly one request frame, dispatch, write exactly one response frame,
// loop. It is OS-agnostic -- only the listener/Accept half is platform
// specific -- so it is exercised directly in tests over net.Pipe.
func serveClient(conn net.Conn, disp Dispatcher, log *logging.Logger, readTimeout, writeTimeout time.Duration) error {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	buf := make([]byte, wire.RequestFrameSize)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			if errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
		if _, err := io.ReadFull(conn, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}

		req, err := wire.DecodeRequest(buf)
		if err != nil {
			log.Warnf("transport: malformed request frame: %v", err)
			return err
		}

		resp := disp.Handle(req)

		out, err := resp.Encode()
		if err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		if _, err := conn.Write(out); err != nil {
			return err
		}
	}
}
