//go:build !windows

package callmarshal

import "errors"

var errUnsupportedPlatform = errors.New("callmarshal: native invocation requires windows")

// StubCaller satisfies NativeCaller on non-Windows build hosts.
type StubCaller struct{}

func NewStubCaller() *StubCaller { return &StubCaller{} }

// New returns the platform NativeCaller -- see caller_windows.go's New for
// why both build variants share this name.
func New() NativeCaller { return NewStubCaller() }

func (StubCaller) Call(addr uint64, args []uint64) (uint64, error) {
	return 0, errUnsupportedPlatform
}
