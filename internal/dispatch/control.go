package dispatch

import (
	"time"

	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/wire"
)

// restartPause is the quiet period between stop and start during a server
// restart (spec §4.8: "stop, 100ms pause, start"), giving the transport
// layer time to finish tearing down its listener before a new one binds.
const restartPause = 100 * time.Millisecond

func (d *Dispatcher) handleControl(req *wire.Request) *wire.Response {
	switch req.Kind {
	case wire.KindServerStatus:
		return d.handleServerStatus()
	case wire.KindServerStop:
		if d.Hooks.Stop != nil {
			d.Hooks.Stop()
		}
		return &wire.Response{Success: true}
	case wire.KindServerStart:
		if d.Hooks.Start == nil {
			return wire.Fail(errs.Internal("no start hook configured").Error())
		}
		if err := d.Hooks.Start(); err != nil {
			return wire.Fail(errs.Wrap(errs.KindInternal, err).Error())
		}
		return &wire.Response{Success: true}
	case wire.KindServerRestart:
		if d.Hooks.Stop != nil {
			d.Hooks.Stop()
		}
		time.Sleep(restartPause)
		if d.Hooks.Start == nil {
			return wire.Fail(errs.Internal("no start hook configured").Error())
		}
		if err := d.Hooks.Start(); err != nil {
			return wire.Fail(errs.Wrap(errs.KindInternal, err).Error())
		}
		return &wire.Response{Success: true}
	default:
		return wire.Fail(errs.UnknownKind("unrecognized control request kind %d", uint32(req.Kind)).Error())
	}
}

func (d *Dispatcher) handleServerStatus() *wire.Response {
	clients := 0
	if d.Hooks.Clients != nil {
		clients = d.Hooks.Clients()
	}
	var snap struct {
		RequestsServed, FaultsCaught, CallsTimedOut, DetoursInstalled, EventsDropped uint64
	}
	if d.Metrics != nil {
		s := d.Metrics.Snapshot()
		snap.RequestsServed, snap.FaultsCaught, snap.CallsTimedOut = s.RequestsServed, s.FaultsCaught, s.CallsTimedOut
		snap.DetoursInstalled, snap.EventsDropped = s.DetoursInstalled, s.EventsDropped
	}

	uptime := time.Duration(0)
	if !d.StartedAt.IsZero() {
		uptime = d.now().Sub(d.StartedAt)
	}

	return &wire.Response{
		Success:           true,
		StatusUptimeMS:    uint64(uptime.Milliseconds()),
		StatusClientCount: uint32(clients),
		StatusPipeName:    d.PipeName,
		StatusRequests:    snap.RequestsServed,
		StatusFaults:      snap.FaultsCaught,
		StatusTimeouts:    snap.CallsTimedOut,
		StatusDetours:     snap.DetoursInstalled,
		StatusDropped:     snap.EventsDropped,
	}
}
