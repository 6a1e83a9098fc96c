// Package callmarshal lowers typed call-function parameters into
// machine words and hands them to a NativeCaller. The Windows caller uses
// one call shape (syscall.SyscallN with six argument slots) for every
// convention and arity; there is no per-(convention, arity) trampoline
// table.
package callmarshal

import (
	"math"
	"unsafe"

	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/wire"
)

// MaxArgs is the widest arity this package's trampoline table supports
// (spec §4.6: 0..6 args).
const MaxArgs = 6

// LowerParam reduces one typed parameter to a pointer-width machine word.
// Integers are zero- or sign-extended; floats are bit-cast; strings are
// passed as a pointer into p's own inline value buffer -- p must be the
// address of the TypedParam as it sits inside the request's Params array,
// not a copy, so the pointer handed to native code stays valid for the
// lifetime of the call.
func LowerParam(p *wire.TypedParam) (uint64, error) {
	switch p.Tag {
	case wire.ParamI8:
		return uint64(uint8(p.Value[0])), nil
	case wire.ParamI16:
		return uint64(p.I32()) & 0xFFFF, nil
	case wire.ParamI32:
		return uint64(uint32(p.I32())), nil
	case wire.ParamI64:
		return p.U64(), nil
	case wire.ParamF32:
		return uint64(math.Float32bits(p.F32())), nil
	case wire.ParamF64:
		return math.Float64bits(p.F64()), nil
	case wire.ParamPointer:
		return p.U64(), nil
	case wire.ParamAnsiString, wire.ParamWideString:
		// The string bytes already live inside the request's inline
		// parameter buffer; address that buffer directly rather than a copy.
		return uint64(uintptr(unsafe.Pointer(&p.Value[0]))), nil
	default:
		return 0, errs.InvalidArgument("unsupported parameter type %d", p.Tag)
	}
}

// LowerArgs lowers every parameter in order, validating the convention and
// arity constraints from spec §4.6. params must be the slice backing the
// request's own Params storage (see LowerParam) so string pointers stay
// valid.
func LowerArgs(convention wire.Convention, params []wire.TypedParam) ([]uint64, error) {
	if convention == wire.ConventionFastcall {
		return nil, errs.InvalidArgument("fastcall is not supported")
	}
	if len(params) > MaxArgs {
		return nil, errs.InvalidArgument("call has %d parameters, max %d", len(params), MaxArgs)
	}

	words := make([]uint64, len(params))
	for i := range params {
		w, err := LowerParam(&params[i])
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return words, nil
}
