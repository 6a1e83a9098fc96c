package dispatch

import (
	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/wire"
)

func (d *Dispatcher) handleDetour(req *wire.Request) *wire.Response {
	switch req.Kind {
	case wire.KindDetourInstall:
		if err := d.Detours.Install(req.Name, req.Target, req.Replacement, req.PatchLen); err != nil {
			return wire.Fail(err.Error())
		}
		if d.Metrics != nil {
			d.Metrics.DetourInstalled()
		}
		return &wire.Response{Success: true}
	case wire.KindDetourRemove:
		if err := d.Detours.Remove(req.Name); err != nil {
			return wire.Fail(err.Error())
		}
		return &wire.Response{Success: true}
	case wire.KindDetourEnable:
		if err := d.Detours.Enable(req.Name); err != nil {
			return wire.Fail(err.Error())
		}
		return &wire.Response{Success: true}
	case wire.KindDetourDisable:
		if err := d.Detours.Disable(req.Name); err != nil {
			return wire.Fail(err.Error())
		}
		return &wire.Response{Success: true}
	default:
		return wire.Fail(errs.UnknownKind("unrecognized detour request kind %d", uint32(req.Kind)).Error())
	}
}
