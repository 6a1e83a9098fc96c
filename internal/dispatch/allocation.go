package dispatch

import (
	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/memaccess"
	"github.com/gwnexus/bridge/internal/wire"
)

func (d *Dispatcher) handleAllocation(req *wire.Request) *wire.Response {
	switch req.Kind {
	case wire.KindAllocate:
		return d.handleAllocate(req)
	case wire.KindFree:
		if err := d.Allocations.Free(req.Address); err != nil {
			return wire.Fail(err.Error())
		}
		return &wire.Response{Success: true}
	case wire.KindWrite:
		return d.handleWrite(req)
	case wire.KindProtect:
		return d.handleProtect(req)
	default:
		return wire.Fail(errs.UnknownKind("unrecognized allocation request kind %d", uint32(req.Kind)).Error())
	}
}

func (d *Dispatcher) handleAllocate(req *wire.Request) *wire.Response {
	got, err := d.Allocations.Allocate(req.Address, req.Size, req.Protection)
	if err != nil {
		return wire.Fail(err.Error())
	}
	return &wire.Response{Success: true, MemAddress: got, MemSize: req.Size}
}

func (d *Dispatcher) handleWrite(req *wire.Request) *wire.Response {
	if req.Size == 0 || req.Size > memaccess.MaxWriteSize || req.Size > wire.MaxWritePayload {
		return wire.Fail(errs.InvalidArgument("write size %d out of range", req.Size).Error())
	}
	data := req.Payload[:req.Size]
	if err := memaccess.WriteGuarded(d.Accessor, req.Address, data); err != nil {
		if d.Metrics != nil && errs.Classify(err) == errs.KindAccessViolation {
			d.Metrics.FaultCaught()
		}
		return wire.Fail(err.Error())
	}
	return &wire.Response{Success: true, MemAddress: req.Address, MemSize: req.Size}
}

func (d *Dispatcher) handleProtect(req *wire.Request) *wire.Response {
	prev, err := memaccess.ProtectGuarded(d.Accessor, req.Address, req.Size, req.Protection)
	if err != nil {
		return wire.Fail(err.Error())
	}
	return &wire.Response{Success: true, MemAddress: req.Address, MemSize: prev}
}
