// Package bridge wires every other package into one running instance: the
// lifecycle atom, the resource registries, the dispatcher, and the
// transport server, the same top-level assembly role the teacher's
// daemon.Run plays for its IPC server and connection pool (spec §1, §4.8,
// §6, §9).
package bridge

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gwnexus/bridge/internal/callmarshal"
	"github.com/gwnexus/bridge/internal/config"
	"github.com/gwnexus/bridge/internal/detour"
	"github.com/gwnexus/bridge/internal/dispatch"
	"github.com/gwnexus/bridge/internal/hostio"
	"github.com/gwnexus/bridge/internal/lifecycle"
	"github.com/gwnexus/bridge/internal/logging"
	"github.com/gwnexus/bridge/internal/memaccess"
	"github.com/gwnexus/bridge/internal/metrics"
	"github.com/gwnexus/bridge/internal/registry"
	"github.com/gwnexus/bridge/internal/threadqueue"
	"github.com/gwnexus/bridge/internal/transport"
	"github.com/gwnexus/bridge/internal/wire"
)

// processorMode is the x86 decode mode passed to the detour registry's
// instruction-length probing. A bridge built for amd64 is injected into a
// 64-bit host process, and vice versa -- this module is always built for
// the same bitness as its host.
const processorMode = 32 << (^uint(0) >> 63)

// Collaborators are the host-injected components this module never
// implements itself (spec §1/§6): a byte-pattern scanner, the host's own
// tick source, a native detour engine, and an optional identifier
// provider for pipe-name derivation. Identifier may be nil, in which case
// the process id is used.
type Collaborators struct {
	Scanner    hostio.Scanner
	FrameHook  hostio.FrameHook
	Detour     hostio.DetourEngine
	Identifier hostio.IdentifierProvider
}

// Bridge owns every long-lived component and the transport server that
// fronts them.
type Bridge struct {
	state    *lifecycle.Atom
	disp     *dispatch.Dispatcher
	server   *transport.Server
	log      *logging.Logger
	pipeName string
}

// New assembles a Bridge from configuration and host collaborators. The
// returned Bridge is in lifecycle.Initializing until Start is called.
func New(cfg *config.Resolved, collab Collaborators) *Bridge {
	state := lifecycle.New()
	log := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	accessor := memaccess.New()
	caller := callmarshal.New()

	executableProbe := func(addr uint64) (bool, error) {
		region, err := accessor.Query(addr)
		if err != nil {
			return false, err
		}
		return region.Committed && region.Executable, nil
	}
	committedProbe := func(addr uint64) (bool, error) {
		region, err := accessor.Query(addr)
		if err != nil {
			return false, err
		}
		return region.Committed, nil
	}
	codeReader := func(addr uint64, n int) ([]byte, error) {
		buf := make([]byte, n)
		if err := memaccess.ReadGuarded(accessor, addr, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	d := dispatch.New()
	d.State = state
	d.Scanner = collab.Scanner
	d.Accessor = accessor
	d.Functions = registry.NewFunctionRegistry(executableProbe)
	d.Allocations = registry.NewAllocationRegistry(allocatorAdapter{accessor})
	d.Events = registry.NewEventRegistry(committedProbe)
	d.Detours = detour.New(collab.Detour, executableProbe, codeReader, processorMode)
	d.Queue = threadqueue.New()
	d.Caller = caller
	d.Metrics = &metrics.Counters{}
	d.Log = log
	d.CallTimeout = cfg.CallTimeout

	pipeName := derivePipeName(cfg.PipeNameOverride, collab.Identifier)
	d.PipeName = pipeName

	srv := transport.New(pipeName, d, log, cfg.ReadTimeout, cfg.WriteTimeout, cfg.MaxClients)
	d.Hooks = dispatch.ControlHooks{
		Start:   srv.Start,
		Stop:    srv.Stop,
		Clients: srv.ClientCount,
	}

	if collab.FrameHook != nil {
		collab.FrameHook.OnTick(d.Queue.DrainPendingCalls)
	}

	return &Bridge{state: state, disp: d, server: srv, log: log, pipeName: pipeName}
}

// Start transitions Initializing->Running and opens the transport server.
func (b *Bridge) Start() error {
	if err := b.server.Start(); err != nil {
		return fmt.Errorf("bridge: starting transport: %w", err)
	}
	b.disp.StartedAt = time.Now()
	b.state.Store(lifecycle.Running)
	b.log.Infof("bridge: started on %s", b.pipeName)
	return nil
}

// Stop runs the same shutdown sequence as a loader-detach request (spec
// §4.8): unblock pending calls, free allocations, detach detours, clear
// registries, close the transport, mark Stopped. Routed through Handle
// rather than called directly so it goes through the same panic-recovery
// and metrics path a client-initiated detach would.
func (b *Bridge) Stop() {
	b.disp.Handle(&wire.Request{Kind: wire.KindLoaderDetach})
}

// PipeName returns the endpoint name this bridge is listening on.
func (b *Bridge) PipeName() string { return b.pipeName }

// State returns the current lifecycle state.
func (b *Bridge) State() lifecycle.State { return b.state.Load() }

type allocatorAdapter struct{ a memaccess.Accessor }

func (al allocatorAdapter) Alloc(addr uint64, size, protection uint32) (uint64, error) {
	return memaccess.AllocateGuarded(al.a, addr, size, protection)
}

func (al allocatorAdapter) Free(addr uint64) error {
	return memaccess.FreeGuarded(al.a, addr)
}

// derivePipeName implements spec §6: \\.\pipe\GwNexus_<identifier>, where
// identifier is a host-derived display name (non-ASCII re-encoded as
// UTF-8, spaces replaced with underscores) if the collaborator supplies
// one, else the process id.
func derivePipeName(override string, provider hostio.IdentifierProvider) string {
	if override != "" {
		return override
	}
	identifier := ""
	if provider != nil {
		if name, ok := provider.HostIdentifier(); ok && name != "" {
			identifier = sanitizeIdentifier(name)
		}
	}
	if identifier == "" {
		identifier = strconv.Itoa(os.Getpid())
	}
	return `\\.\pipe\GwNexus_` + identifier
}

func sanitizeIdentifier(name string) string {
	name = strings.ToValidUTF8(name, "")
	return strings.ReplaceAll(name, " ", "_")
}
