package memaccess

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// fakeAccessor backs a small flat address space in a Go byte slice,
// letting the guarded helpers be tested without touching real memory.
type fakeAccessor struct {
	base   uint64
	data   []byte
	denyAt map[uint64]bool
}

func newFakeAccessor(base uint64, size int) *fakeAccessor {
	return &fakeAccessor{base: base, data: make([]byte, size), denyAt: map[uint64]bool{}}
}

func (f *fakeAccessor) Query(addr uint64) (RegionInfo, error) {
	if addr < f.base || addr >= f.base+uint64(len(f.data)) {
		return RegionInfo{Committed: false}, nil
	}
	return RegionInfo{
		BaseAddress: f.base,
		RegionSize:  uint64(len(f.data)),
		Committed:   true,
		Readable:    true,
		Writable:    true,
		Executable:  false,
	}, nil
}

func (f *fakeAccessor) Protect(addr uint64, size uint32, protection uint32) (uint32, error) {
	return PageReadWrite, nil
}

func (f *fakeAccessor) Alloc(addr uint64, size uint32, allocType, protection uint32) (uint64, error) {
	return f.base, nil
}

func (f *fakeAccessor) Free(addr uint64) error { return nil }

func (f *fakeAccessor) Read(addr uint64, out []byte) error {
	if f.denyAt[addr] {
		return errFault
	}
	off := addr - f.base
	copy(out, f.data[off:off+uint64(len(out))])
	return nil
}

func (f *fakeAccessor) Write(addr uint64, in []byte) error {
	if f.denyAt[addr] {
		return errFault
	}
	off := addr - f.base
	copy(f.data[off:], in)
	return nil
}

var errFault = fakeFault{}

type fakeFault struct{}

func (fakeFault) Error() string { return "simulated access violation" }

func TestReadWriteGuardedRoundTrip(t *testing.T) {
	a := newFakeAccessor(0x1000, 64)
	payload := []byte("hello, bridge")
	if err := WriteGuarded(a, 0x1000, payload); err != nil {
		t.Fatalf("WriteGuarded: %v", err)
	}
	out := make([]byte, len(payload))
	if err := ReadGuarded(a, 0x1000, out); err != nil {
		t.Fatalf("ReadGuarded: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("got %q want %q", out, payload)
	}
}

func TestReadGuardedRejectsUncommitted(t *testing.T) {
	a := newFakeAccessor(0x1000, 64)
	out := make([]byte, 4)
	if err := ReadGuarded(a, 0xDEAD0000, out); err == nil {
		t.Fatal("expected error reading uncommitted region")
	}
}

func TestWriteGuardedRejectsOversize(t *testing.T) {
	a := newFakeAccessor(0x1000, 64)
	if err := WriteGuarded(a, 0x1000, make([]byte, MaxWriteSize+1)); err == nil {
		t.Fatal("expected error for oversize write")
	}
}

func TestWalkPointerChainThreeHops(t *testing.T) {
	a := newFakeAccessor(0x1000, 32)
	base := uint64(0x1000)
	binary.LittleEndian.PutUint64(a.data[0:8], base+8)
	binary.LittleEndian.PutUint64(a.data[8:16], base+16)
	binary.LittleEndian.PutUint32(a.data[16:20], 0x11223344)

	result, err := WalkPointerChain(a, base, []int32{0, 0}, 4)
	if err != nil {
		t.Fatalf("WalkPointerChain: %v", err)
	}
	if result.FinalAddress != base+16 {
		t.Errorf("FinalAddress = %#x, want %#x", result.FinalAddress, base+16)
	}
	if result.Value != 0x11223344 {
		t.Errorf("Value = %#x, want 0x11223344", result.Value)
	}
}

func TestWalkPointerChainRejectsTooManyOffsets(t *testing.T) {
	a := newFakeAccessor(0x1000, 32)
	offsets := make([]int32, 17)
	if _, err := WalkPointerChain(a, 0x1000, offsets, 4); err == nil {
		t.Fatal("expected error for too many offsets")
	}
}

func TestWalkPointerChainRejectsBadFinalSize(t *testing.T) {
	a := newFakeAccessor(0x1000, 32)
	if _, err := WalkPointerChain(a, 0x1000, nil, 3); err == nil {
		t.Fatal("expected error for unsupported final size")
	}
}

func TestReadArrayRejectsOverflow(t *testing.T) {
	a := newFakeAccessor(0x1000, 4096)
	if _, _, err := ReadArray(a, 0x1000, 8, 1000); err == nil {
		t.Fatal("expected error for array read exceeding 2KiB")
	}
}

func TestReadArrayRoundTrip(t *testing.T) {
	a := newFakeAccessor(0x1000, 64)
	for i := 0; i < 16; i++ {
		a.data[i] = byte(i)
	}
	buf, elemSize, err := ReadArray(a, 0x1000, 4, 4)
	if err != nil {
		t.Fatalf("ReadArray: %v", err)
	}
	if elemSize != 4 || len(buf) != 16 {
		t.Fatalf("elemSize=%d len=%d", elemSize, len(buf))
	}
	if !bytes.Equal(buf, a.data[:16]) {
		t.Fatalf("payload mismatch")
	}
}

func TestReadBatchPartialFailure(t *testing.T) {
	a := newFakeAccessor(0x1000, 16)
	for i := 0; i < 16; i++ {
		a.data[i] = byte(i)
	}
	entries := []BatchEntry{
		{Address: 0x1000, Size: 1},
		{Address: 0x1002, Size: 2},
		{Address: 0x1004, Size: 4},
		{Address: 0x1008, Size: 8},
		{Address: 0, Size: 4},
	}
	result, err := ReadBatch(a, entries)
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if !result.AnyOK {
		t.Fatal("expected at least one successful entry")
	}
	for i := 0; i < 4; i++ {
		if !result.Success[i] {
			t.Errorf("entry %d: expected success", i)
		}
	}
	if result.Success[4] {
		t.Errorf("entry 4: expected failure (null address)")
	}
	if result.Values[0] != 0x00 {
		t.Errorf("entry 0 value = %#x, want 0x00", result.Values[0])
	}
	if result.Values[1] != 0x0302 {
		t.Errorf("entry 1 value = %#x, want 0x0302", result.Values[1])
	}
	if result.Values[2] != 0x07060504 {
		t.Errorf("entry 2 value = %#x, want 0x07060504", result.Values[2])
	}
	if result.Values[3] != 0x0F0E0D0C0B0A0908 {
		t.Errorf("entry 3 value = %#x, want 0x0F0E0D0C0B0A0908", result.Values[3])
	}
}
