package detour

import (
	"errors"
	"testing"

	"github.com/gwnexus/bridge/internal/hostio"
)

type fakeHandle struct {
	enableErr  error
	enabled    bool
	disableErr error
	removed    bool
}

func (h *fakeHandle) Enable() error {
	if h.enableErr != nil {
		return h.enableErr
	}
	h.enabled = true
	return nil
}

func (h *fakeHandle) Disable() error {
	if h.disableErr != nil {
		return h.disableErr
	}
	h.enabled = false
	return nil
}

func (h *fakeHandle) Remove() error {
	h.removed = true
	return nil
}

type fakeEngine struct {
	handles   []*fakeHandle
	createErr error
}

func (e *fakeEngine) Create(target, replacement uint64) (hostio.Detour, error) {
	if e.createErr != nil {
		return nil, e.createErr
	}
	h := &fakeHandle{}
	e.handles = append(e.handles, h)
	return h, nil
}

func alwaysExecutableDetour(addr uint64) (bool, error) { return true, nil }

func TestInstallEnableRemoveLifecycle(t *testing.T) {
	engine := &fakeEngine{}
	r := New(engine, alwaysExecutableDetour, nil, 0)

	if err := r.Install("hook1", 0x1000, 0x2000, 0); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
	if !engine.handles[0].enabled {
		t.Fatal("expected detour to be enabled after install")
	}

	if err := r.Disable("hook1"); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if engine.handles[0].enabled {
		t.Fatal("expected detour disabled")
	}

	if err := r.Enable("hook1"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !engine.handles[0].enabled {
		t.Fatal("expected detour re-enabled")
	}

	if err := r.Remove("hook1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if r.Count() != 0 {
		t.Fatalf("Count after remove = %d, want 0", r.Count())
	}
	if !engine.handles[0].removed {
		t.Fatal("expected handle.Remove() to be called")
	}
}

func TestInstallRejectsDuplicateName(t *testing.T) {
	engine := &fakeEngine{}
	r := New(engine, alwaysExecutableDetour, nil, 0)
	if err := r.Install("hook1", 0x1000, 0x2000, 0); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := r.Install("hook1", 0x3000, 0x4000, 0); err == nil {
		t.Fatal("expected error for duplicate name")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
}

func TestInstallRejectsNonExecutableTarget(t *testing.T) {
	engine := &fakeEngine{}
	r := New(engine, func(addr uint64) (bool, error) { return false, nil }, nil, 0)
	if err := r.Install("hook1", 0x1000, 0x2000, 0); err == nil {
		t.Fatal("expected error for non-executable target")
	}
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0", r.Count())
	}
}

// TestInstallFailureAfterCreationDetaches verifies spec §8/§4.5: install
// failure after creating but before enabling detaches to restore
// invariants -- no half-installed detour remains registered or attached.
func TestInstallFailureAfterCreationDetaches(t *testing.T) {
	engine := &failingEnableEngine{}
	r := New(engine, alwaysExecutableDetour, nil, 0)

	if err := r.Install("hook1", 0x1000, 0x2000, 0); err == nil {
		t.Fatal("expected error when enable fails")
	}
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0 after failed install", r.Count())
	}
	if !engine.handle.removed {
		t.Fatal("expected the half-created handle to be removed")
	}
}

// TestInstallComputesPatchLengthFromCodeReader covers the minimum-safe-
// patch-length probe: a target whose first instruction is a 1-byte NOP
// (0x90) needs two instructions (6 bytes) decoded to cover a 5-byte
// relative jmp, and a caller-declared expectation that disagrees is
// rejected.
func TestInstallComputesPatchLengthFromCodeReader(t *testing.T) {
	// 0x90 NOP (1 byte), then 0xB8 imm32 MOV EAX,imm32 (5 bytes) = 6 bytes
	// total once the jmp's 5-byte footprint forces decoding past the NOP.
	code := []byte{0x90, 0xB8, 0x01, 0x00, 0x00, 0x00}
	reader := func(addr uint64, n int) ([]byte, error) { return code, nil }

	engine := &fakeEngine{}
	r := New(engine, alwaysExecutableDetour, reader, 32)

	if err := r.Install("hook1", 0x1000, 0x2000, 0); err != nil {
		t.Fatalf("Install: %v", err)
	}
	got, ok := r.PatchLength("hook1")
	if !ok || got != 6 {
		t.Fatalf("PatchLength = (%d, %v), want (6, true)", got, ok)
	}

	if err := r.Install("hook2", 0x1000, 0x2000, 5); err == nil {
		t.Fatal("expected error when caller's declared patch length disagrees with the decoded length")
	}
}

type failingEnableEngine struct {
	handle *fakeHandle
}

func (e *failingEnableEngine) Create(target, replacement uint64) (hostio.Detour, error) {
	e.handle = &fakeHandle{enableErr: errors.New("enable failed")}
	return e.handle, nil
}
