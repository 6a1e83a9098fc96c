package dispatch

import (
	"github.com/gwnexus/bridge/internal/callmarshal"
	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/registry"
	"github.com/gwnexus/bridge/internal/threadqueue"
	"github.com/gwnexus/bridge/internal/wire"
)

func (d *Dispatcher) handleFunction(req *wire.Request) *wire.Response {
	switch req.Kind {
	case wire.KindRegisterFunction:
		return d.handleRegisterFunction(req)
	case wire.KindUnregisterFunction:
		if err := d.Functions.Unregister(req.Name); err != nil {
			return wire.Fail(err.Error())
		}
		return &wire.Response{Success: true}
	case wire.KindListFunctions:
		return d.handleListFunctions()
	case wire.KindCallFunction:
		return d.handleCallFunction(req)
	default:
		return wire.Fail(errs.UnknownKind("unrecognized function request kind %d", uint32(req.Kind)).Error())
	}
}

func (d *Dispatcher) handleRegisterFunction(req *wire.Request) *wire.Response {
	if req.ParamCount > wire.MaxParams {
		return wire.Fail(errs.InvalidArgument("function has %d params, max %d", req.ParamCount, wire.MaxParams).Error())
	}
	rec := registry.FunctionRecord{
		Name:       req.Name,
		Address:    req.Address,
		ParamCount: req.ParamCount,
		Convention: req.Convention,
		HasReturn:  req.HasReturn,
	}
	if err := d.Functions.Register(rec); err != nil {
		return wire.Fail(err.Error())
	}
	return &wire.Response{Success: true}
}

func (d *Dispatcher) handleListFunctions() *wire.Response {
	names := d.Functions.List(wire.MaxFuncListName)
	resp := &wire.Response{Success: true, FuncCount: uint32(len(names))}
	for i, name := range names {
		resp.FuncNames[i] = name
	}
	return resp
}

func (d *Dispatcher) handleCallFunction(req *wire.Request) *wire.Response {
	rec, ok := d.Functions.Lookup(req.Name)
	if !ok {
		return wire.Fail(errs.NotFound("function %q is not registered", req.Name).Error())
	}
	if req.ParamCount > wire.MaxParams {
		return wire.Fail(errs.InvalidArgument("call has %d params, max %d", req.ParamCount, wire.MaxParams).Error())
	}

	params := req.Params[:req.ParamCount]
	invoke := func() (any, error) {
		return callmarshal.Invoke(d.Caller, d.instanceProbe, callmarshal.Request{
			Address:    rec.Address,
			Convention: rec.Convention,
			HasReturn:  rec.HasReturn,
			Params:     params,
		})
	}

	timeout := d.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	out := d.Queue.Submit(threadqueue.Invoker(invoke), timeout)
	if out.Err != nil {
		if d.Metrics != nil && errs.Classify(out.Err) == errs.KindTimeout {
			d.Metrics.CallTimedOut()
		}
		return wire.Fail(out.Err.Error())
	}

	result, _ := out.Value.(callmarshal.Result)
	resp := &wire.Response{Success: true, CallHasReturn: result.HasReturn}
	if result.HasReturn {
		// The response exposes only a truncated 32-bit view of the
		// result (spec §4.6, §9 Open Question b); the full 64-bit value
		// stays in the pending call's outcome for any future caller
		// that wants it.
		truncated := uint32(result.Value)
		resp.CallValue[0] = byte(truncated)
		resp.CallValue[1] = byte(truncated >> 8)
		resp.CallValue[2] = byte(truncated >> 16)
		resp.CallValue[3] = byte(truncated >> 24)
	}
	return resp
}

func (d *Dispatcher) instanceProbe(addr uint64) (bool, error) {
	region, err := d.Accessor.Query(addr)
	if err != nil {
		return false, err
	}
	return region.Committed, nil
}
