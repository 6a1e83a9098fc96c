// Package registry implements the bridge's three independently-locked
// resource tables: registered native functions, owned allocations, and
// named event rings (spec §3, §4.4, §4.7). Each table is its own type with
// its own mutex -- modeled on the teacher's mcppool.Pool
// (getOrCreate/invalidate/CloseAll shape) generalized from "one MCP
// connection per server name" to "one typed record per resource name or
// address". Lock acquisition is never nested across registries (spec §5).
package registry

import (
	"sort"
	"sync"

	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/wire"
)

// FunctionRecord is a registered native function (spec §3).
type FunctionRecord struct {
	Name       string
	Address    uint64
	ParamCount uint32
	Convention wire.Convention
	HasReturn  bool
}

// ExecutableProbe reports whether addr lies in an executable, committed
// region -- the registration invariant from spec §3/§4.4.
type ExecutableProbe func(addr uint64) (bool, error)

// FunctionRegistry is the by-unique-name function table.
type FunctionRegistry struct {
	mu      sync.Mutex
	probe   ExecutableProbe
	records map[string]FunctionRecord
}

// NewFunctionRegistry creates an empty registry. probe is consulted on
// every Register call.
func NewFunctionRegistry(probe ExecutableProbe) *FunctionRegistry {
	return &FunctionRegistry{probe: probe, records: make(map[string]FunctionRecord)}
}

// Register validates the target address and stores the record, overwriting
// any existing entry with the same name (spec §4.4: duplicate names
// overwrite).
func (r *FunctionRegistry) Register(rec FunctionRecord) error {
	ok, err := r.probe(rec.Address)
	if err != nil {
		return errs.Wrap(errs.KindNotExecutable, err)
	}
	if !ok {
		return errs.NotExecutable("address %#x is not an executable, committed region", rec.Address)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Name] = rec
	return nil
}

// Unregister removes a function by name.
func (r *FunctionRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[name]; !ok {
		return errs.NotFound("function %q is not registered", name)
	}
	delete(r.records, name)
	return nil
}

// Lookup returns the record for name, if registered.
func (r *FunctionRegistry) Lookup(name string) (FunctionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	return rec, ok
}

// List returns up to limit names in lexical order (spec §4.4: up to 20
// names per response).
func (r *FunctionRegistry) List(limit int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}

// Count returns the number of registered functions.
func (r *FunctionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Clear removes every record (used on shutdown).
func (r *FunctionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]FunctionRecord)
}
