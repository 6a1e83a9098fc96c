package wire

import (
	"encoding/binary"
	"fmt"
)

// encoder writes fixed-width fields sequentially into a preallocated
// buffer. Because every field width is constant, sequential writes land
// at deterministic offsets -- this is how the fixed C-ABI layout is
// produced without resorting to unsafe struct overlays.
type encoder struct {
	buf []byte
	off int
}

func newEncoder(size int) *encoder {
	return &encoder{buf: make([]byte, size)}
}

func (e *encoder) u8(v uint8) {
	e.buf[e.off] = v
	e.off++
}

func (e *encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[e.off:], v)
	e.off += 4
}

func (e *encoder) i32(v int32) { e.u32(uint32(v)) }

func (e *encoder) u64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[e.off:], v)
	e.off += 8
}

func (e *encoder) bytes(n int, v []byte) {
	copy(e.buf[e.off:e.off+n], v)
	e.off += n
}

// fixedString writes s as a nul-terminated, nul-padded field of width n.
func (e *encoder) fixedString(n int, s string) error {
	if len(s) > n-1 {
		return fmt.Errorf("wire: string %q exceeds field width %d", s, n-1)
	}
	field := make([]byte, n)
	copy(field, s)
	e.bytes(n, field)
	return nil
}

func (e *encoder) skip(n int) { e.off += n }

func (e *encoder) done() []byte { return e.buf }

type decoder struct {
	buf []byte
	off int
}

func newDecoder(buf []byte) *decoder { return &decoder{buf: buf} }

func (d *decoder) u8() uint8 {
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *decoder) u32() uint32 {
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *decoder) i32() int32 { return int32(d.u32()) }

func (d *decoder) u64() uint64 {
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *decoder) bytes(n int) []byte {
	v := make([]byte, n)
	copy(v, d.buf[d.off:d.off+n])
	d.off += n
	return v
}

// fixedString reads a nul-terminated field of width n, stopping at the
// first nul byte.
func (d *decoder) fixedString(n int) string {
	field := d.buf[d.off : d.off+n]
	d.off += n
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

func (d *decoder) skip(n int) { d.off += n }

// TypedParam is one tagged call-function argument (spec §3).
type TypedParam struct {
	Tag   ParamType
	Value [ParamValueLen]byte // widest arm: ansi-string <=255 chars + nul
}

const typedParamSize = 4 + ParamValueLen // 1 tag byte + 3 pad + value

func (p TypedParam) encode(e *encoder) {
	e.u8(uint8(p.Tag))
	e.skip(3)
	e.bytes(ParamValueLen, p.Value[:])
}

func (p *TypedParam) decode(d *decoder) {
	p.Tag = ParamType(d.u8())
	d.skip(3)
	copy(p.Value[:], d.bytes(ParamValueLen))
}

// I32 returns the value interpreted as a little-endian int32.
func (p TypedParam) I32() int32 { return int32(binary.LittleEndian.Uint32(p.Value[:4])) }

// I64 returns the value interpreted as a little-endian int64.
func (p TypedParam) I64() int64 { return int64(binary.LittleEndian.Uint64(p.Value[:8])) }

// U64 returns the value interpreted as a little-endian uint64 (pointers).
func (p TypedParam) U64() uint64 { return binary.LittleEndian.Uint64(p.Value[:8]) }

// F32 returns the value interpreted as an IEEE-754 float32.
func (p TypedParam) F32() float32 {
	return float32FromBits(binary.LittleEndian.Uint32(p.Value[:4]))
}

// F64 returns the value interpreted as an IEEE-754 float64.
func (p TypedParam) F64() float64 {
	return float64FromBits(binary.LittleEndian.Uint64(p.Value[:8]))
}

// String returns the value interpreted as a nul-terminated ANSI string.
func (p TypedParam) String() string {
	for i, b := range p.Value {
		if b == 0 {
			return string(p.Value[:i])
		}
	}
	return string(p.Value[:])
}

// ParamI32Value builds an i32 typed parameter.
func ParamI32Value(v int32) TypedParam {
	var tp TypedParam
	tp.Tag = ParamI32
	binary.LittleEndian.PutUint32(tp.Value[:4], uint32(v))
	return tp
}

// ParamI64Value builds an i64 typed parameter.
func ParamI64Value(v int64) TypedParam {
	var tp TypedParam
	tp.Tag = ParamI64
	binary.LittleEndian.PutUint64(tp.Value[:8], uint64(v))
	return tp
}

// ParamPointerValue builds a pointer typed parameter.
func ParamPointerValue(v uint64) TypedParam {
	var tp TypedParam
	tp.Tag = ParamPointer
	binary.LittleEndian.PutUint64(tp.Value[:8], v)
	return tp
}

// ParamStringValue builds an ansi-string typed parameter.
func ParamStringValue(s string) (TypedParam, error) {
	var tp TypedParam
	tp.Tag = ParamAnsiString
	if len(s) > ParamValueLen-1 {
		return tp, fmt.Errorf("wire: ansi string too long (%d > %d)", len(s), ParamValueLen-1)
	}
	copy(tp.Value[:], s)
	return tp, nil
}

// Request is the fully decoded, fixed-size request frame. Only the
// fields relevant to Kind are meaningful -- this mirrors the wire
// union's "only one arm is live" contract in an idiomatic Go shape
// (a flat struct with every possible field, filled in per-Kind), rather
// than an unsafe overlay.
type Request struct {
	Kind Kind

	// Pattern / range / assertion scan.
	Pattern    [MaxPatternLen]byte
	Mask       [MaxMaskLen]byte
	Length     uint32
	Offset     uint32
	Section    uint32
	RangeStart uint64
	RangeEnd   uint64
	NearCall   uint64 // also reused as single address for to-function-start/from-near-call

	// Memory op (read/write/protect/free/allocate).
	Address    uint64
	Size       uint32
	Protection uint32
	Payload    [MaxWritePayload]byte

	// Pointer chain.
	Base      uint64
	Count     uint32
	FinalSize uint32
	Offsets   [MaxOffsets]int32

	// Function registry / call.
	Name           string
	ParamCount     uint32
	Convention     Convention
	HasReturn      bool
	Params         [MaxParams]TypedParam

	// Detour.
	Target      uint64
	Replacement uint64
	PatchLen    uint32

	// Event op.
	BufferAddress uint64
	BufferSize    uint32
	MaxEvents     uint32

	// Server control.
	PipeName string
	Wait     uint32

	// Heartbeat.
	ClientTimestamp uint64

	// Array read.
	ElementType uint32

	// Batch read.
	BatchCount     uint32
	BatchSizes     [MaxBatchEntries]uint32
	BatchAddresses [MaxBatchEntries]uint64
}

// RequestFrameSize is the fixed total size of an encoded request, in
// bytes. It is dominated by the call-function arm (up to 10 typed
// parameters, each wide enough for a 255-byte ANSI string).
const RequestFrameSize = 4 + requestUnionSize

const requestUnionSize = MaxPatternLen + MaxMaskLen + 4 + 4 + 4 + 8 + 8 + 8 + // scan arms (548)
	8 + 4 + 4 + MaxWritePayload + // memory op (1040)
	8 + 4 + 4 + MaxOffsets*4 + // pointer chain (80)
	NameFieldLen + 4 + 1 + 1 + MaxParams*typedParamSize + // function registry/call (2670)
	8 + 8 + 4 + // detour (20)
	8 + 4 + 4 + // event op (16)
	NameFieldLen + 4 + // server control (68)
	8 + // heartbeat (8)
	8 + 4 + 4 + // array read: base + element type + count (16)
	4 + MaxBatchEntries*4 + MaxBatchEntries*8 // batch read (388)

// Encode serializes the request into a RequestFrameSize-byte buffer.
// Only the fields meaningful for r.Kind need be set by the caller; the
// rest are encoded as zero.
func (r *Request) Encode() ([]byte, error) {
	e := newEncoder(RequestFrameSize)
	e.u32(uint32(r.Kind))

	e.bytes(MaxPatternLen, r.Pattern[:])
	e.bytes(MaxMaskLen, r.Mask[:])
	e.u32(r.Length)
	e.u32(r.Offset)
	e.u32(r.Section)
	e.u64(r.RangeStart)
	e.u64(r.RangeEnd)
	e.u64(r.NearCall)

	e.u64(r.Address)
	e.u32(r.Size)
	e.u32(r.Protection)
	e.bytes(MaxWritePayload, r.Payload[:])

	e.u64(r.Base)
	e.u32(r.Count)
	e.u32(r.FinalSize)
	for _, o := range r.Offsets {
		e.i32(o)
	}

	if err := e.fixedString(NameFieldLen, r.Name); err != nil {
		return nil, err
	}
	e.u32(r.ParamCount)
	e.u8(uint8(r.Convention))
	if r.HasReturn {
		e.u8(1)
	} else {
		e.u8(0)
	}
	for _, p := range r.Params {
		p.encode(e)
	}

	e.u64(r.Target)
	e.u64(r.Replacement)
	e.u32(r.PatchLen)

	e.u64(r.BufferAddress)
	e.u32(r.BufferSize)
	e.u32(r.MaxEvents)

	if err := e.fixedString(NameFieldLen, r.PipeName); err != nil {
		return nil, err
	}
	e.u32(r.Wait)

	e.u64(r.ClientTimestamp)

	e.u64(r.Base) // array read reuses Base as its base address field
	e.u32(r.ElementType)
	e.u32(r.Count) // array read reuses Count as its element count field

	e.u32(r.BatchCount)
	for _, s := range r.BatchSizes {
		e.u32(s)
	}
	for _, a := range r.BatchAddresses {
		e.u64(a)
	}

	buf := e.done()
	if e.off > len(buf) {
		return nil, fmt.Errorf("wire: encoder overflow (wrote %d of %d)", e.off, len(buf))
	}
	return buf, nil
}

// DecodeRequest parses a RequestFrameSize-byte buffer into a Request.
func DecodeRequest(buf []byte) (*Request, error) {
	if len(buf) != RequestFrameSize {
		return nil, fmt.Errorf("wire: request frame is %d bytes, want %d", len(buf), RequestFrameSize)
	}
	d := newDecoder(buf)
	r := &Request{}
	r.Kind = Kind(d.u32())

	copy(r.Pattern[:], d.bytes(MaxPatternLen))
	copy(r.Mask[:], d.bytes(MaxMaskLen))
	r.Length = d.u32()
	r.Offset = d.u32()
	r.Section = d.u32()
	r.RangeStart = d.u64()
	r.RangeEnd = d.u64()
	r.NearCall = d.u64()

	r.Address = d.u64()
	r.Size = d.u32()
	r.Protection = d.u32()
	copy(r.Payload[:], d.bytes(MaxWritePayload))

	r.Base = d.u64()
	r.Count = d.u32()
	r.FinalSize = d.u32()
	for i := range r.Offsets {
		r.Offsets[i] = d.i32()
	}

	r.Name = d.fixedString(NameFieldLen)
	r.ParamCount = d.u32()
	r.Convention = Convention(d.u8())
	r.HasReturn = d.u8() != 0
	for i := range r.Params {
		r.Params[i].decode(d)
	}

	r.Target = d.u64()
	r.Replacement = d.u64()
	r.PatchLen = d.u32()

	r.BufferAddress = d.u64()
	r.BufferSize = d.u32()
	r.MaxEvents = d.u32()

	r.PipeName = d.fixedString(NameFieldLen)
	r.Wait = d.u32()

	r.ClientTimestamp = d.u64()

	r.Base = d.u64()
	r.ElementType = d.u32()
	r.Count = d.u32()

	r.BatchCount = d.u32()
	for i := range r.BatchSizes {
		r.BatchSizes[i] = d.u32()
	}
	for i := range r.BatchAddresses {
		r.BatchAddresses[i] = d.u64()
	}

	return r, nil
}

// Response is the fully decoded, fixed-size response frame.
type Response struct {
	Success bool

	ScanAddress uint64

	MemAddress uint64
	MemSize    uint32
	MemPayload [MaxWritePayload]byte

	CallHasReturn bool
	CallValue     [8]byte

	FuncCount uint32
	FuncNames [MaxFuncListName]string

	SectionStart uint64
	SectionEnd   uint64

	EventCount   uint32
	EventPayload [MaxWritePayload]byte

	ChainFinalAddress uint64
	ChainValue        uint64

	ArrayElementType uint32
	ArrayCount       uint32
	ArrayElementSize uint32
	ArrayTotalSize   uint32
	ArrayPayload     [MaxArrayPayload]byte

	BatchCount       uint32
	BatchSuccessMask uint32
	BatchValues      [MaxBatchEntries]uint64

	HeartbeatClientTimestamp uint64
	HeartbeatServerTimestamp uint64
	HeartbeatLatency         uint64

	StatusUptimeMS    uint64
	StatusClientCount uint32
	StatusPipeName    string
	StatusRequests    uint64
	StatusFaults      uint64
	StatusTimeouts    uint64
	StatusDetours     uint64
	StatusDropped     uint64

	LoaderState uint32

	ErrorMessage string
}

const responseUnionSize = 8 + // scan address
	8 + 4 + MaxWritePayload + // memory result
	4 + 8 + // call result (haveReturn padded to 4 + 8 byte value)
	4 + MaxFuncListName*NameFieldLen + // function list
	8 + 8 + // section info
	4 + MaxWritePayload + // event batch
	8 + 8 + // pointer chain result
	4 + 4 + 4 + 4 + MaxArrayPayload + // array result
	4 + 4 + MaxBatchEntries*8 + // batch result
	8 + 8 + 8 + // heartbeat result
	8 + 4 + NameFieldLen + 8*5 + // server status
	4 // loader status

// ResponseFrameSize is the fixed total size of an encoded response, in
// bytes: success flag + union + trailing 256-byte error message.
const ResponseFrameSize = 4 + responseUnionSize + ErrorMessageLen

// Encode serializes the response into a ResponseFrameSize-byte buffer.
func (resp *Response) Encode() ([]byte, error) {
	e := newEncoder(ResponseFrameSize)
	if resp.Success {
		e.u8(1)
	} else {
		e.u8(0)
	}
	e.skip(3)

	e.u64(resp.ScanAddress)

	e.u64(resp.MemAddress)
	e.u32(resp.MemSize)
	e.bytes(MaxWritePayload, resp.MemPayload[:])

	if resp.CallHasReturn {
		e.u32(1)
	} else {
		e.u32(0)
	}
	e.bytes(8, resp.CallValue[:])

	e.u32(resp.FuncCount)
	for i := 0; i < MaxFuncListName; i++ {
		var name string
		if i < len(resp.FuncNames) {
			name = resp.FuncNames[i]
		}
		if err := e.fixedString(NameFieldLen, name); err != nil {
			return nil, err
		}
	}

	e.u64(resp.SectionStart)
	e.u64(resp.SectionEnd)

	e.u32(resp.EventCount)
	e.bytes(MaxWritePayload, resp.EventPayload[:])

	e.u64(resp.ChainFinalAddress)
	e.u64(resp.ChainValue)

	e.u32(resp.ArrayElementType)
	e.u32(resp.ArrayCount)
	e.u32(resp.ArrayElementSize)
	e.u32(resp.ArrayTotalSize)
	e.bytes(MaxArrayPayload, resp.ArrayPayload[:])

	e.u32(resp.BatchCount)
	e.u32(resp.BatchSuccessMask)
	for _, v := range resp.BatchValues {
		e.u64(v)
	}

	e.u64(resp.HeartbeatClientTimestamp)
	e.u64(resp.HeartbeatServerTimestamp)
	e.u64(resp.HeartbeatLatency)

	e.u64(resp.StatusUptimeMS)
	e.u32(resp.StatusClientCount)
	if err := e.fixedString(NameFieldLen, resp.StatusPipeName); err != nil {
		return nil, err
	}
	e.u64(resp.StatusRequests)
	e.u64(resp.StatusFaults)
	e.u64(resp.StatusTimeouts)
	e.u64(resp.StatusDetours)
	e.u64(resp.StatusDropped)

	e.u32(resp.LoaderState)

	if err := e.fixedString(ErrorMessageLen, resp.ErrorMessage); err != nil {
		// Error messages are truncated rather than rejected -- a response
		// must always be producible, even when the underlying error
		// message is longer than the wire field.
		resp.ErrorMessage = resp.ErrorMessage[:ErrorMessageLen-1]
		_ = e.fixedString(ErrorMessageLen, resp.ErrorMessage)
	}

	buf := e.done()
	if e.off > len(buf) {
		return nil, fmt.Errorf("wire: encoder overflow (wrote %d of %d)", e.off, len(buf))
	}
	return buf, nil
}

// DecodeResponse parses a ResponseFrameSize-byte buffer into a Response.
func DecodeResponse(buf []byte) (*Response, error) {
	if len(buf) != ResponseFrameSize {
		return nil, fmt.Errorf("wire: response frame is %d bytes, want %d", len(buf), ResponseFrameSize)
	}
	d := newDecoder(buf)
	resp := &Response{}
	resp.Success = d.u8() != 0
	d.skip(3)

	resp.ScanAddress = d.u64()

	resp.MemAddress = d.u64()
	resp.MemSize = d.u32()
	copy(resp.MemPayload[:], d.bytes(MaxWritePayload))

	resp.CallHasReturn = d.u32() != 0
	copy(resp.CallValue[:], d.bytes(8))

	resp.FuncCount = d.u32()
	for i := 0; i < MaxFuncListName; i++ {
		resp.FuncNames[i] = d.fixedString(NameFieldLen)
	}

	resp.SectionStart = d.u64()
	resp.SectionEnd = d.u64()

	resp.EventCount = d.u32()
	copy(resp.EventPayload[:], d.bytes(MaxWritePayload))

	resp.ChainFinalAddress = d.u64()
	resp.ChainValue = d.u64()

	resp.ArrayElementType = d.u32()
	resp.ArrayCount = d.u32()
	resp.ArrayElementSize = d.u32()
	resp.ArrayTotalSize = d.u32()
	copy(resp.ArrayPayload[:], d.bytes(MaxArrayPayload))

	resp.BatchCount = d.u32()
	resp.BatchSuccessMask = d.u32()
	for i := range resp.BatchValues {
		resp.BatchValues[i] = d.u64()
	}

	resp.HeartbeatClientTimestamp = d.u64()
	resp.HeartbeatServerTimestamp = d.u64()
	resp.HeartbeatLatency = d.u64()

	resp.StatusUptimeMS = d.u64()
	resp.StatusClientCount = d.u32()
	resp.StatusPipeName = d.fixedString(NameFieldLen)
	resp.StatusRequests = d.u64()
	resp.StatusFaults = d.u64()
	resp.StatusTimeouts = d.u64()
	resp.StatusDetours = d.u64()
	resp.StatusDropped = d.u64()

	resp.LoaderState = d.u32()

	resp.ErrorMessage = d.fixedString(ErrorMessageLen)

	return resp, nil
}

// Fail builds a failure response with the given error message, truncated
// to the wire field width if necessary.
func Fail(msg string) *Response {
	if len(msg) > ErrorMessageLen-1 {
		msg = msg[:ErrorMessageLen-1]
	}
	return &Response{Success: false, ErrorMessage: msg}
}
