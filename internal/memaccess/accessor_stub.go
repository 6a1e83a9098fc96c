//go:build !windows

package memaccess

import "errors"

var errUnsupportedPlatform = errors.New("memaccess: host memory access requires windows")

// StubAccessor satisfies Accessor on non-Windows build hosts, so the rest
// of the module is buildable and testable off-target (spec §1 non-goal:
// single host architecture per build -- this module is still Go-portable
// even though the one supported target is Windows).
type StubAccessor struct{}

func NewStubAccessor() *StubAccessor { return &StubAccessor{} }

// New returns the platform Accessor -- see accessor_windows.go's New for
// why both build variants share this name.
func New() Accessor { return NewStubAccessor() }

func (StubAccessor) Query(addr uint64) (RegionInfo, error) { return RegionInfo{}, errUnsupportedPlatform }

func (StubAccessor) Protect(addr uint64, size uint32, protection uint32) (uint32, error) {
	return 0, errUnsupportedPlatform
}

func (StubAccessor) Alloc(addr uint64, size uint32, allocType, protection uint32) (uint64, error) {
	return 0, errUnsupportedPlatform
}

func (StubAccessor) Free(addr uint64) error { return errUnsupportedPlatform }

func (StubAccessor) Read(addr uint64, out []byte) error { return errUnsupportedPlatform }

func (StubAccessor) Write(addr uint64, in []byte) error { return errUnsupportedPlatform }
