package dispatch

import (
	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/lifecycle"
	"github.com/gwnexus/bridge/internal/wire"
)

func (d *Dispatcher) handleLifecycle(req *wire.Request) *wire.Response {
	switch req.Kind {
	case wire.KindLoaderStatus:
		state := lifecycle.Initializing
		if d.State != nil {
			state = d.State.Load()
		}
		return &wire.Response{Success: true, LoaderState: uint32(state)}
	case wire.KindLoaderDetach:
		return d.handleLoaderDetach()
	default:
		return wire.Fail(errs.UnknownKind("unrecognized lifecycle request kind %d", uint32(req.Kind)).Error())
	}
}

// handleLoaderDetach runs the shutdown destruction order (spec §4.8): stop
// accepting new requests, unblock every pending call with a failure, free
// every owned allocation, detach every installed detour, clear the
// function and event registries, then mark the atom Stopped. Order
// matters -- detours and allocations must be torn down before the
// registries that describe them are cleared, and pending calls must be
// unblocked before the queue's drain side goes away.
func (d *Dispatcher) handleLoaderDetach() *wire.Response {
	if d.State != nil {
		d.State.RequestShutdown()
	}

	if d.Queue != nil {
		d.Queue.FailAllPending()
	}
	if d.Allocations != nil {
		d.Allocations.FreeAll()
	}
	if d.Detours != nil {
		d.Detours.RemoveAll()
	}
	if d.Functions != nil {
		d.Functions.Clear()
	}
	if d.Events != nil {
		d.Events.Clear()
	}
	if d.Hooks.Stop != nil {
		d.Hooks.Stop()
	}

	if d.State != nil {
		d.State.Store(lifecycle.Stopped)
	}
	return &wire.Response{Success: true}
}
