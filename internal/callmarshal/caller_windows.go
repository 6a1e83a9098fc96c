//go:build windows

package callmarshal

import (
	"fmt"
	"syscall"
)

// SyscallCaller invokes a native code address using the Windows x64
// calling convention via syscall.SyscallN, the same low-level primitive
// the teacher's and pack's Windows examples reach for underneath a
// NewLazyDLL.Call (e.g. other_examples pjongy-dll_memory_scanner__module.go,
// other_examples NadeenUdantha-vram__pipes.go). The monomorphic
// trampoline table described in spec §9 reduces to a single call shape
// here because the Windows x64 ABI unifies cdecl/stdcall/thiscall
// register passing; what differs between them is argument lowering
// (handled by LowerArgs/Invoke), not the call instruction itself.
type SyscallCaller struct{}

// NewSyscallCaller returns a NativeCaller bound to the current process.
func NewSyscallCaller() *SyscallCaller { return &SyscallCaller{} }

// New returns the platform NativeCaller -- the symmetric name internal/bridge
// wires against regardless of GOOS.
func New() NativeCaller { return NewSyscallCaller() }

func (SyscallCaller) Call(addr uint64, args []uint64) (result uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("access violation calling %#x: %v", addr, r)
		}
	}()

	var a [6]uintptr
	for i, v := range args {
		a[i] = uintptr(v)
	}
	r1, _, callErr := syscall.SyscallN(uintptr(addr), a[0], a[1], a[2], a[3], a[4], a[5])
	if callErr != 0 {
		return 0, fmt.Errorf("native call to %#x failed: %w", addr, callErr)
	}
	return uint64(r1), nil
}
