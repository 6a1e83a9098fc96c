package registry

import (
	"sync"

	"github.com/gwnexus/bridge/internal/errs"
)

// AllocationRecord is an owned allocation (spec §3): { size,
// original-protection }, keyed by address.
type AllocationRecord struct {
	Address            uint64
	Size               uint32
	OriginalProtection uint32
}

// Allocator performs the underlying VirtualAlloc/VirtualFree calls; the
// registry only tracks bookkeeping (spec invariant: free rejects unknown
// addresses -- every entry in this table was produced by this bridge).
type Allocator interface {
	Alloc(addr uint64, size uint32, protection uint32) (uint64, error)
	Free(addr uint64) error
}

// AllocationRegistry is the by-address allocation table.
type AllocationRegistry struct {
	mu      sync.Mutex
	alloc   Allocator
	records map[uint64]AllocationRecord
}

// NewAllocationRegistry creates an empty registry bound to alloc.
func NewAllocationRegistry(alloc Allocator) *AllocationRegistry {
	return &AllocationRegistry{alloc: alloc, records: make(map[uint64]AllocationRecord)}
}

// Allocate performs the allocation and records ownership.
func (r *AllocationRegistry) Allocate(addr uint64, size, protection uint32) (uint64, error) {
	got, err := r.alloc.Alloc(addr, size, protection)
	if err != nil {
		return 0, errs.Wrap(errs.KindInternal, err)
	}

	r.mu.Lock()
	r.records[got] = AllocationRecord{Address: got, Size: size, OriginalProtection: protection}
	r.mu.Unlock()
	return got, nil
}

// Free releases addr, rejecting addresses this bridge did not allocate.
func (r *AllocationRegistry) Free(addr uint64) error {
	r.mu.Lock()
	_, ok := r.records[addr]
	if ok {
		delete(r.records, addr)
	}
	r.mu.Unlock()

	if !ok {
		return errs.NotFound("address %#x was not allocated by this bridge", addr)
	}
	if err := r.alloc.Free(addr); err != nil {
		return errs.Wrap(errs.KindInternal, err)
	}
	return nil
}

// Count returns the number of live allocations.
func (r *AllocationRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// FreeAll releases every tracked allocation (shutdown destruction order,
// spec §4.8).
func (r *AllocationRegistry) FreeAll() {
	r.mu.Lock()
	records := r.records
	r.records = make(map[uint64]AllocationRecord)
	r.mu.Unlock()

	for addr := range records {
		_ = r.alloc.Free(addr)
	}
}
