package wire

import (
	"bytes"
	"testing"
)

func TestRequestRoundTripPointerChain(t *testing.T) {
	req := &Request{
		Kind:      KindPointerChain,
		Base:      0x10000,
		Count:     2,
		FinalSize: 4,
	}
	req.Offsets[0] = 0
	req.Offsets[1] = 16

	buf, err := req.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != RequestFrameSize {
		t.Fatalf("encoded length = %d, want %d", len(buf), RequestFrameSize)
	}

	got, err := DecodeRequest(buf)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if got.Kind != KindPointerChain || got.Base != req.Base || got.FinalSize != req.FinalSize {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Offsets[0] != 0 || got.Offsets[1] != 16 {
		t.Fatalf("offsets mismatch: %v", got.Offsets)
	}
}

func TestRequestRoundTripCallFunction(t *testing.T) {
	req := &Request{
		Kind:       KindCallFunction,
		Name:       "add",
		ParamCount: 2,
		Convention: ConventionCdecl,
		HasReturn:  true,
	}
	req.Params[0] = ParamI32Value(7)
	req.Params[1] = ParamI32Value(35)

	buf, err := req.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeRequest(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != "add" || got.ParamCount != 2 || got.Convention != ConventionCdecl || !got.HasReturn {
		t.Fatalf("mismatch: %+v", got)
	}
	if got.Params[0].I32() != 7 || got.Params[1].I32() != 35 {
		t.Fatalf("param mismatch: %v %v", got.Params[0].I32(), got.Params[1].I32())
	}
}

func TestRequestNameTooLongRejected(t *testing.T) {
	long := bytes.Repeat([]byte("x"), MaxNameLen+1)
	req := &Request{Kind: KindRegisterFunction, Name: string(long)}
	if _, err := req.Encode(); err == nil {
		t.Fatal("expected error for over-length name")
	}
}

func TestResponseRoundTripArrayResult(t *testing.T) {
	resp := &Response{
		Success:          true,
		ArrayElementType: 3,
		ArrayCount:       4,
		ArrayElementSize: 4,
		ArrayTotalSize:   16,
	}
	copy(resp.ArrayPayload[:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

	buf, err := resp.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != ResponseFrameSize {
		t.Fatalf("encoded length = %d, want %d", len(buf), ResponseFrameSize)
	}

	got, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Success || got.ArrayCount != 4 || got.ArrayTotalSize != 16 {
		t.Fatalf("mismatch: %+v", got)
	}
	if !bytes.Equal(got.ArrayPayload[:16], resp.ArrayPayload[:16]) {
		t.Fatalf("payload mismatch")
	}
}

func TestResponseFailHelper(t *testing.T) {
	resp := Fail("Pattern not found")
	if resp.Success {
		t.Fatal("Fail() should produce Success=false")
	}
	buf, err := resp.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ErrorMessage != "Pattern not found" {
		t.Fatalf("ErrorMessage = %q", got.ErrorMessage)
	}
}

func TestResponseErrorMessageTruncated(t *testing.T) {
	long := bytes.Repeat([]byte("e"), ErrorMessageLen+50)
	resp := Fail(string(long))
	if len(resp.ErrorMessage) != ErrorMessageLen-1 {
		t.Fatalf("Fail() should pre-truncate, got len %d", len(resp.ErrorMessage))
	}
}

func TestTypedParamStringRoundTrip(t *testing.T) {
	tp, err := ParamStringValue("hello")
	if err != nil {
		t.Fatalf("ParamStringValue: %v", err)
	}
	if tp.String() != "hello" {
		t.Fatalf("String() = %q", tp.String())
	}
}

func TestTypedParamWideStringRoundTrip(t *testing.T) {
	tp, err := ParamWideStringValue("wide")
	if err != nil {
		t.Fatalf("ParamWideStringValue: %v", err)
	}
	if tp.WideString() != "wide" {
		t.Fatalf("WideString() = %q", tp.WideString())
	}
}

func TestTypedParamFloatRoundTrip(t *testing.T) {
	f32 := ParamF32Value(3.25)
	if f32.F32() != 3.25 {
		t.Fatalf("F32() = %v", f32.F32())
	}
	f64 := ParamF64Value(6.5)
	if f64.F64() != 6.5 {
		t.Fatalf("F64() = %v", f64.F64())
	}
}

func TestDecodeRequestRejectsWrongSize(t *testing.T) {
	if _, err := DecodeRequest(make([]byte, 10)); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
}

func TestDecodeResponseRejectsWrongSize(t *testing.T) {
	if _, err := DecodeResponse(make([]byte, 10)); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
}

func TestBatchReadFields(t *testing.T) {
	req := &Request{Kind: KindBatchRead, BatchCount: 2}
	req.BatchSizes[0] = 1
	req.BatchAddresses[0] = 0xAAAA
	req.BatchSizes[1] = 8
	req.BatchAddresses[1] = 0xBBBB

	buf, err := req.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeRequest(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.BatchCount != 2 || got.BatchAddresses[0] != 0xAAAA || got.BatchSizes[1] != 8 {
		t.Fatalf("mismatch: %+v", got)
	}
}
