package callmarshal

import (
	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/wire"
)

// NativeCaller invokes a native function address with already-lowered
// machine-word arguments and returns the raw pointer-sized result. Callers
// must wrap the actual invocation in a structured-fault guard -- see
// caller_windows.go -- so an access violation inside the callee surfaces
// as an error rather than crashing the host.
type NativeCaller interface {
	Call(addr uint64, args []uint64) (uint64, error)
}

// InstanceProbe reports whether addr is a valid, committed region -- used
// to validate thiscall's implicit instance pointer before dispatch.
type InstanceProbe func(addr uint64) (bool, error)

// Request describes one call-function invocation (spec §4.6).
type Request struct {
	Address    uint64
	Convention wire.Convention
	HasReturn  bool
	Params     []wire.TypedParam
}

// Result is the outcome of a successful invocation.
type Result struct {
	HasReturn bool
	Value     uint64
}

// Invoke marshals Request's parameters per its calling convention and
// passes them to caller. thiscall treats parameter 0 as the implicit
// instance pointer and probes it before dispatch; otherwise cdecl, stdcall
// and thiscall reach caller the same way, since NativeCaller takes no
// convention; fastcall is rejected in LowerArgs.
func Invoke(caller NativeCaller, probe InstanceProbe, req Request) (Result, error) {
	if req.Convention == wire.ConventionThiscall {
		if len(req.Params) == 0 {
			return Result{}, errs.InvalidArgument("thiscall requires an instance pointer as parameter 0")
		}
		instance := req.Params[0].U64()
		ok, err := probe(instance)
		if err != nil {
			return Result{}, errs.Wrap(errs.KindNotCommitted, err)
		}
		if !ok {
			return Result{}, errs.NotCommitted("thiscall instance pointer %#x is not committed", instance)
		}
	}

	args, err := LowerArgs(req.Convention, req.Params)
	if err != nil {
		return Result{}, err
	}

	value, err := caller.Call(req.Address, args)
	if err != nil {
		return Result{}, errs.New(errs.KindAccessViolation, "call to %#x faulted: %s", req.Address, err.Error())
	}

	return Result{HasReturn: req.HasReturn, Value: value}, nil
}
