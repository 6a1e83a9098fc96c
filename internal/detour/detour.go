// Package detour implements the by-name detour registry (spec §4.5):
// install, enable, disable, and remove inline code patches through the
// hostio.DetourEngine collaborator. It owns naming and invariants; the
// engine owns the actual instruction patching. Instruction-length probing
// at the target address uses golang.org/x/arch/x86/x86asm, adopted from
// zboralski-unflutter's disassembly-backed tooling, to report how many
// bytes a patch would need to overwrite before installing it.
package detour

import (
	"sync"

	"golang.org/x/arch/x86/x86asm"

	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/hostio"
)

// ExecutableProbe reports whether addr lies in an executable, committed
// region -- the same invariant the function registry enforces.
type ExecutableProbe func(addr uint64) (bool, error)

// CodeReader returns up to n bytes of code starting at addr, for
// instruction-length probing.
type CodeReader func(addr uint64, n int) ([]byte, error)

type record struct {
	target   uint64
	enabled  bool
	patchLen int
	handle   hostio.Detour
}

// Registry is the by-name detour table (spec §3, §4.5).
type Registry struct {
	mu      sync.Mutex
	engine  hostio.DetourEngine
	probe   ExecutableProbe
	reader  CodeReader
	mode    int
	records map[string]*record
}

// New creates an empty detour registry bound to the given engine and
// executable-region probe. reader and mode are optional (reader may be
// nil): when set, Install uses them to decode the instructions at the
// target address and compute the minimum safe patch length before
// patching, rather than trusting the caller's declared length blindly.
// mode is the processor mode in bits (32 or 64), passed through to
// x86asm.Decode.
func New(engine hostio.DetourEngine, probe ExecutableProbe, reader CodeReader, mode int) *Registry {
	return &Registry{engine: engine, probe: probe, reader: reader, mode: mode, records: make(map[string]*record)}
}

// jmpPatchSize is the smallest replacement this engine ever installs: a
// relative near jmp (opcode + rel32).
const jmpPatchSize = 5

// PatchLength decodes one x86 instruction at the given code bytes and
// returns its length, the minimum number of bytes a detour at that address
// must overwrite. mode is the processor mode in bits (32 or 64).
func PatchLength(code []byte, mode int) (int, error) {
	inst, err := x86asm.Decode(code, mode)
	if err != nil {
		return 0, errs.Wrap(errs.KindInvalidArgument, err)
	}
	return inst.Len, nil
}

// minimumSafePatchLength decodes whole instructions from the start of code
// until their combined length covers at least jmpPatchSize bytes, so the
// jump never lands in the middle of an instruction it didn't fully
// overwrite.
func minimumSafePatchLength(code []byte, mode int) (int, error) {
	total := 0
	for total < jmpPatchSize {
		if total >= len(code) {
			return 0, errs.InvalidArgument("not enough code bytes to compute a safe %d-byte patch", jmpPatchSize)
		}
		n, err := PatchLength(code[total:], mode)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Install rejects a duplicate name or a non-executable target, probes the
// minimum safe patch length at the target when a code reader is
// configured (mismatching a nonzero expectedPatchLen), then creates and
// enables the detour, recording the name->target binding (spec §4.5). If
// creation succeeds but enabling fails, the detour is detached before the
// error is returned, so no half-installed state survives.
func (r *Registry) Install(name string, target, replacement uint64, expectedPatchLen uint32) error {
	ok, err := r.probe(target)
	if err != nil {
		return errs.Wrap(errs.KindNotExecutable, err)
	}
	if !ok {
		return errs.NotExecutable("detour target %#x is not executable", target)
	}

	patchLen := 0
	if r.reader != nil {
		code, err := r.reader(target, jmpPatchSize+15)
		if err != nil {
			return errs.Wrap(errs.KindInternal, err)
		}
		n, err := minimumSafePatchLength(code, r.mode)
		if err != nil {
			return errs.Wrap(errs.KindInvalidArgument, err)
		}
		if expectedPatchLen != 0 && uint32(n) != expectedPatchLen {
			return errs.InvalidArgument("detour target %#x needs a %d-byte patch, caller declared %d", target, n, expectedPatchLen)
		}
		patchLen = n
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[name]; exists {
		return errs.Duplicate("detour %q already installed", name)
	}

	handle, err := r.engine.Create(target, replacement)
	if err != nil {
		return errs.Wrap(errs.KindInternal, err)
	}
	if err := handle.Enable(); err != nil {
		_ = handle.Remove()
		return errs.Wrap(errs.KindInternal, err)
	}

	r.records[name] = &record{target: target, enabled: true, patchLen: patchLen, handle: handle}
	return nil
}

// PatchLength returns the minimum safe patch length computed at Install
// time for the named detour, or 0 if no code reader was configured.
func (r *Registry) PatchLength(name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	if !ok {
		return 0, false
	}
	return rec.patchLen, true
}

// Remove disables, detaches, and erases a detour by name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	rec, ok := r.records[name]
	if ok {
		delete(r.records, name)
	}
	r.mu.Unlock()

	if !ok {
		return errs.NotFound("detour %q is not installed", name)
	}
	if rec.enabled {
		_ = rec.handle.Disable()
	}
	if err := rec.handle.Remove(); err != nil {
		return errs.Wrap(errs.KindInternal, err)
	}
	return nil
}

// Enable re-enables a previously disabled detour without detaching it.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	if !ok {
		return errs.NotFound("detour %q is not installed", name)
	}
	if rec.enabled {
		return nil
	}
	if err := rec.handle.Enable(); err != nil {
		return errs.Wrap(errs.KindInternal, err)
	}
	rec.enabled = true
	return nil
}

// Disable turns off a detour without detaching it.
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	if !ok {
		return errs.NotFound("detour %q is not installed", name)
	}
	if !rec.enabled {
		return nil
	}
	if err := rec.handle.Disable(); err != nil {
		return errs.Wrap(errs.KindInternal, err)
	}
	rec.enabled = false
	return nil
}

// Count returns the number of installed detours.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// RemoveAll detaches and erases every detour (shutdown destruction order,
// spec §4.8).
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	records := r.records
	r.records = make(map[string]*record)
	r.mu.Unlock()

	for _, rec := range records {
		if rec.enabled {
			_ = rec.handle.Disable()
		}
		_ = rec.handle.Remove()
	}
}
