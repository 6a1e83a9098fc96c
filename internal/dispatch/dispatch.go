// Package dispatch routes decoded request frames to their handlers by
// Kind, enforces the lifecycle shutdown gate, and converts any uncaught
// handler fault into a failure response (spec §4.2). It is the bridge's
// single point of contact between the transport layer and every other
// component.
package dispatch

import (
	"time"

	"github.com/gwnexus/bridge/internal/callmarshal"
	"github.com/gwnexus/bridge/internal/detour"
	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/hostio"
	"github.com/gwnexus/bridge/internal/lifecycle"
	"github.com/gwnexus/bridge/internal/logging"
	"github.com/gwnexus/bridge/internal/memaccess"
	"github.com/gwnexus/bridge/internal/metrics"
	"github.com/gwnexus/bridge/internal/registry"
	"github.com/gwnexus/bridge/internal/threadqueue"
	"github.com/gwnexus/bridge/internal/wire"
)

// DefaultCallTimeout is the absolute deadline for a call-function pending
// call (spec §4.6) used when a Dispatcher's CallTimeout field is left
// zero.
const DefaultCallTimeout = 5 * time.Second

// ControlHooks lets the control handler start/stop/restart the transport
// server without this package importing it (the transport owns the
// dispatcher, not the other way around).
type ControlHooks struct {
	Start   func() error
	Stop    func()
	Clients func() int
}

// Dispatcher wires together every resource registry and collaborator and
// routes decoded requests to the right handler.
type Dispatcher struct {
	State       *lifecycle.Atom
	Scanner     hostio.Scanner
	Accessor    memaccess.Accessor
	Functions   *registry.FunctionRegistry
	Allocations *registry.AllocationRegistry
	Events      *registry.EventRegistry
	Detours     *detour.Registry
	Queue       *threadqueue.Queue
	Caller      callmarshal.NativeCaller
	Metrics     *metrics.Counters
	Log         *logging.Logger
	PipeName    string
	StartedAt   time.Time
	Hooks       ControlHooks
	CallTimeout time.Duration

	now func() time.Time
}

// New creates a Dispatcher with CallTimeout defaulted to
// DefaultCallTimeout; the bridge wiring overwrites it from resolved
// config before Handle is first called. Other fields must be populated
// by the caller (normally internal/bridge's wiring).
func New() *Dispatcher {
	return &Dispatcher{now: time.Now, CallTimeout: DefaultCallTimeout}
}

// Handle routes req to its handler, gating on the lifecycle atom and
// recovering any panic into a failure response (spec §4.2). Exactly one
// response is produced per request.
func (d *Dispatcher) Handle(req *wire.Request) (resp *wire.Response) {
	defer func() {
		if r := recover(); r != nil {
			if d.Log != nil {
				d.Log.Errorf("dispatch: handler for kind %s panicked: %v", req.Kind, r)
			}
			resp = wire.Fail(errs.Internal("internal fault handling %s: %v", req.Kind, r).Error())
		}
	}()

	if d.State != nil && !d.State.Accepting() {
		if d.Metrics != nil {
			d.Metrics.RequestServed()
		}
		return wire.Fail(errs.ErrShuttingDown.Error())
	}

	resp = d.route(req)
	if d.Metrics != nil {
		d.Metrics.RequestServed()
	}
	return resp
}

func (d *Dispatcher) route(req *wire.Request) *wire.Response {
	switch req.Kind {
	case wire.KindScanFind, wire.KindScanFindAssertion, wire.KindScanFindInRange,
		wire.KindScanToFunctionStart, wire.KindScanFunctionFromNearCall,
		wire.KindReadMemory, wire.KindSectionInfo, wire.KindPointerChain:
		return d.handleMemory(req)

	case wire.KindRegisterFunction, wire.KindUnregisterFunction,
		wire.KindCallFunction, wire.KindListFunctions:
		return d.handleFunction(req)

	case wire.KindAllocate, wire.KindFree, wire.KindWrite, wire.KindProtect:
		return d.handleAllocation(req)

	case wire.KindDetourInstall, wire.KindDetourRemove,
		wire.KindDetourEnable, wire.KindDetourDisable:
		return d.handleDetour(req)

	case wire.KindEventPoll, wire.KindEventRegister, wire.KindEventUnregister:
		return d.handleEvent(req)

	case wire.KindArrayRead, wire.KindBatchRead:
		return d.handleBulkRead(req)

	case wire.KindServerStatus, wire.KindServerStop, wire.KindServerStart, wire.KindServerRestart:
		return d.handleControl(req)

	case wire.KindLoaderDetach, wire.KindLoaderStatus:
		return d.handleLifecycle(req)

	case wire.KindHeartbeat:
		return d.handleHeartbeat(req)

	case wire.KindBatchRequest:
		// Reserved, unimplemented (spec §9 Open Question a).
		return wire.Fail(errs.UnknownKind("batch-request is reserved and not yet implemented").Error())

	default:
		return wire.Fail(errs.UnknownKind("unrecognized request kind %d", uint32(req.Kind)).Error())
	}
}
