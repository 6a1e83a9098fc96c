// Package memaccess implements guarded reads, writes, protection changes,
// and allocations against the host's own address space (spec §4.3), plus
// the pointer-chain walker, array read, and batch read built on top of
// them. The platform-specific half (VirtualQuery/Protect/Alloc/Free and the
// raw dereference) lives in accessor_windows.go / accessor_stub.go, split
// the way the teacher splits per-OS peer-credential probes.
package memaccess

import (
	"encoding/binary"

	"github.com/gwnexus/bridge/internal/errs"
)

// RegionInfo describes a queried memory region, mirroring a trimmed-down
// MEMORY_BASIC_INFORMATION.
type RegionInfo struct {
	BaseAddress uint64
	RegionSize  uint64
	Committed   bool
	Readable    bool
	Writable    bool
	Executable  bool
}

// Accessor is the platform-specific half of memory access: region queries,
// protection changes, allocation, and raw byte transfer. Implementations
// must never let a fault escape -- Read/Write wrap the actual dereference
// in a structured-fault guard and return errs.AccessViolation instead.
type Accessor interface {
	Query(addr uint64) (RegionInfo, error)
	Protect(addr uint64, size uint32, protection uint32) (previous uint32, err error)
	Alloc(addr uint64, size uint32, allocType, protection uint32) (uint64, error)
	Free(addr uint64) error
	Read(addr uint64, out []byte) error
	Write(addr uint64, in []byte) error
}

// Size bounds, spec §4.3.
const (
	MaxWriteSize      = 64 * 1024
	MaxAllocationSize = 1 * 1024 * 1024
	MaxArrayReadBytes = 2048
	MaxMemReadBytes   = 1024
)

// ReadGuarded probes readability of the whole range before dereferencing,
// then performs the guarded read. It never dereferences on a failed probe.
func ReadGuarded(a Accessor, addr uint64, out []byte) error {
	if len(out) == 0 {
		return errs.InvalidArgument("read size must be nonzero")
	}
	end := addr + uint64(len(out))
	if end < addr {
		return errs.InvalidArgument("read range at %#x wraps the address space", addr)
	}
	for cur := addr; cur < end; {
		region, err := a.Query(cur)
		if err != nil {
			return errs.Wrap(errs.KindNotReadable, err)
		}
		if !region.Committed {
			return errs.NotCommitted("address %#x is not committed", cur)
		}
		if !region.Readable {
			return errs.NotReadable("address %#x is not readable", cur)
		}
		next := region.BaseAddress + region.RegionSize
		if next <= cur {
			return errs.NotReadable("address %#x: region query reported no extent", cur)
		}
		cur = next
	}
	if err := a.Read(addr, out); err != nil {
		return errs.Wrap(errs.KindAccessViolation, err)
	}
	return nil
}

// WriteGuarded switches the target range to read-write-execute, performs
// the copy, then restores the prior protection (spec §4.3).
func WriteGuarded(a Accessor, addr uint64, data []byte) error {
	if len(data) == 0 {
		return errs.InvalidArgument("write size must be nonzero")
	}
	if len(data) > MaxWriteSize {
		return errs.InvalidArgument("write size %d exceeds limit %d", len(data), MaxWriteSize)
	}
	prev, err := a.Protect(addr, uint32(len(data)), PageExecuteReadWrite)
	if err != nil {
		return errs.Wrap(errs.KindNotCommitted, err)
	}
	writeErr := a.Write(addr, data)
	if _, restoreErr := a.Protect(addr, uint32(len(data)), prev); restoreErr != nil && writeErr == nil {
		writeErr = restoreErr
	}
	if writeErr != nil {
		return errs.Wrap(errs.KindAccessViolation, writeErr)
	}
	return nil
}

// ProtectGuarded changes the protection of a region and returns the prior
// protection value.
func ProtectGuarded(a Accessor, addr uint64, size uint32, protection uint32) (uint32, error) {
	if size == 0 {
		return 0, errs.InvalidArgument("protect size must be nonzero")
	}
	prev, err := a.Protect(addr, size, protection)
	if err != nil {
		return 0, errs.Wrap(errs.KindNotCommitted, err)
	}
	return prev, nil
}

// AllocateGuarded allocates up to MaxAllocationSize bytes of committed
// memory at the requested protection.
func AllocateGuarded(a Accessor, addr uint64, size uint32, protection uint32) (uint64, error) {
	if size == 0 {
		return 0, errs.InvalidArgument("allocation size must be nonzero")
	}
	if size > MaxAllocationSize {
		return 0, errs.InvalidArgument("allocation size %d exceeds limit %d", size, MaxAllocationSize)
	}
	got, err := a.Alloc(addr, size, MemCommit|MemReserve, protection)
	if err != nil {
		return 0, errs.Wrap(errs.KindInternal, err)
	}
	return got, nil
}

// FreeGuarded releases a previously allocated region.
func FreeGuarded(a Accessor, addr uint64) error {
	if err := a.Free(addr); err != nil {
		return errs.Wrap(errs.KindNotFound, err)
	}
	return nil
}

// ChainResult is the outcome of a pointer-chain walk.
type ChainResult struct {
	FinalAddress uint64
	Value        uint64
}

// WalkPointerChain implements spec §4.3: cur <- base; for each offset o,
// probe a readable pointer-sized slot at cur, load next, set
// cur <- next + o. After the loop, probe finalSize bytes at cur and
// zero-extend the value into a 64-bit slot.
func WalkPointerChain(a Accessor, base uint64, offsets []int32, finalSize uint32) (ChainResult, error) {
	if len(offsets) > 16 {
		return ChainResult{}, errs.InvalidArgument("pointer chain has %d offsets, max 16", len(offsets))
	}
	switch finalSize {
	case 1, 2, 4, 8:
	default:
		return ChainResult{}, errs.InvalidArgument("unsupported final-size %d", finalSize)
	}

	cur := base
	for i, o := range offsets {
		var ptrBuf [8]byte
		if err := ReadGuarded(a, cur, ptrBuf[:]); err != nil {
			return ChainResult{}, errs.New(errs.Classify(err), "pointer chain step %d at %#x: %s", i, cur, errs.Message(err))
		}
		next := binary.LittleEndian.Uint64(ptrBuf[:])
		cur = uint64(int64(next) + int64(o))
	}

	buf := make([]byte, finalSize)
	if err := ReadGuarded(a, cur, buf); err != nil {
		return ChainResult{}, errs.New(errs.Classify(err), "pointer chain final read at %#x: %s", cur, errs.Message(err))
	}

	var value uint64
	switch finalSize {
	case 1:
		value = uint64(buf[0])
	case 2:
		value = uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		value = uint64(binary.LittleEndian.Uint32(buf))
	case 8:
		value = binary.LittleEndian.Uint64(buf)
	}
	return ChainResult{FinalAddress: cur, Value: value}, nil
}

// ElementSize maps an array-read element-type tag to its byte width.
func ElementSize(elementType uint32) (uint32, error) {
	switch elementType {
	case 1:
		return 1, nil
	case 2:
		return 2, nil
	case 4:
		return 4, nil
	case 8:
		return 8, nil
	default:
		return 0, errs.InvalidArgument("unsupported element type %d", elementType)
	}
}

// ReadArray implements spec §4.3's array read: count*elementSize must fit
// MaxArrayReadBytes without overflowing.
func ReadArray(a Accessor, base uint64, elementType, count uint32) ([]byte, uint32, error) {
	elemSize, err := ElementSize(elementType)
	if err != nil {
		return nil, 0, err
	}
	total := uint64(elemSize) * uint64(count)
	if total > MaxArrayReadBytes {
		return nil, 0, errs.InvalidArgument("array read total %d exceeds limit %d", total, MaxArrayReadBytes)
	}
	buf := make([]byte, total)
	if total > 0 {
		if err := ReadGuarded(a, base, buf); err != nil {
			return nil, 0, err
		}
	}
	return buf, elemSize, nil
}

// BatchEntry is one (address, size) pair in a batch read.
type BatchEntry struct {
	Address uint64
	Size    uint32
}

// BatchResult carries the per-entry outcome of a batch read.
type BatchResult struct {
	Values  [32]uint64
	Success [32]bool
	AnyOK   bool
}

// ReadBatch implements spec §4.3: per-entry failures do not abort the
// batch; the overall success flag is set iff at least one entry succeeded.
func ReadBatch(a Accessor, entries []BatchEntry) (BatchResult, error) {
	if len(entries) > 32 {
		return BatchResult{}, errs.InvalidArgument("batch has %d entries, max 32", len(entries))
	}
	var result BatchResult
	for i, e := range entries {
		switch e.Size {
		case 1, 2, 4, 8:
		default:
			continue
		}
		buf := make([]byte, e.Size)
		if err := ReadGuarded(a, e.Address, buf); err != nil {
			continue
		}
		var v uint64
		switch e.Size {
		case 1:
			v = uint64(buf[0])
		case 2:
			v = uint64(binary.LittleEndian.Uint16(buf))
		case 4:
			v = uint64(binary.LittleEndian.Uint32(buf))
		case 8:
			v = binary.LittleEndian.Uint64(buf)
		}
		result.Values[i] = v
		result.Success[i] = true
		result.AnyOK = true
	}
	return result, nil
}
