package dispatch

import (
	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/memaccess"
	"github.com/gwnexus/bridge/internal/wire"
)

func (d *Dispatcher) handleMemory(req *wire.Request) *wire.Response {
	switch req.Kind {
	case wire.KindScanFind:
		return d.scanResponse(d.Scanner.Find(trimPattern(req), trimMask(req), req.Section, req.Offset, req.Length))
	case wire.KindScanFindAssertion:
		return d.scanResponse(d.Scanner.FindAssertion(trimPattern(req), trimMask(req), req.Section, req.Offset, req.Length))
	case wire.KindScanFindInRange:
		return d.scanResponse(d.Scanner.FindInRange(trimPattern(req), trimMask(req), req.RangeStart, req.RangeEnd))
	case wire.KindScanToFunctionStart:
		return d.scanResponse(d.Scanner.ToFunctionStart(req.NearCall))
	case wire.KindScanFunctionFromNearCall:
		return d.scanResponse(d.Scanner.FunctionFromNearCall(req.NearCall))
	case wire.KindSectionInfo:
		start, end, ok := d.Scanner.GetSectionAddressRange(req.Section)
		if !ok {
			return wire.Fail(errs.NotFound("section %d not found", req.Section).Error())
		}
		return &wire.Response{Success: true, SectionStart: start, SectionEnd: end}
	case wire.KindReadMemory:
		return d.handleReadMemory(req)
	case wire.KindPointerChain:
		return d.handlePointerChain(req)
	default:
		return wire.Fail(errs.UnknownKind("unrecognized memory request kind %d", uint32(req.Kind)).Error())
	}
}

func trimPattern(req *wire.Request) []byte {
	n := req.Length
	if n > wire.MaxPatternLen {
		n = wire.MaxPatternLen
	}
	return req.Pattern[:n]
}

func trimMask(req *wire.Request) []byte {
	n := req.Length
	if n > wire.MaxMaskLen {
		n = wire.MaxMaskLen
	}
	return req.Mask[:n]
}

func (d *Dispatcher) scanResponse(addr uint64, ok bool) *wire.Response {
	if !ok {
		return wire.Fail("Pattern not found")
	}
	return &wire.Response{Success: true, ScanAddress: addr}
}

func (d *Dispatcher) handleReadMemory(req *wire.Request) *wire.Response {
	if req.Size == 0 || req.Size > memaccess.MaxMemReadBytes {
		return wire.Fail(errs.InvalidArgument("read size %d out of range", req.Size).Error())
	}
	buf := make([]byte, req.Size)
	if err := memaccess.ReadGuarded(d.Accessor, req.Address, buf); err != nil {
		if d.Metrics != nil && errs.Classify(err) == errs.KindAccessViolation {
			d.Metrics.FaultCaught()
		}
		return wire.Fail(err.Error())
	}
	resp := &wire.Response{Success: true, MemAddress: req.Address, MemSize: req.Size}
	copy(resp.MemPayload[:], buf)
	return resp
}

func (d *Dispatcher) handlePointerChain(req *wire.Request) *wire.Response {
	if req.Count > wire.MaxOffsets {
		return wire.Fail(errs.InvalidArgument("pointer chain has %d offsets, max %d", req.Count, wire.MaxOffsets).Error())
	}
	offsets := req.Offsets[:req.Count]
	result, err := memaccess.WalkPointerChain(d.Accessor, req.Base, offsets, req.FinalSize)
	if err != nil {
		if d.Metrics != nil && errs.Classify(err) == errs.KindAccessViolation {
			d.Metrics.FaultCaught()
		}
		return wire.Fail(err.Error())
	}
	return &wire.Response{Success: true, ChainFinalAddress: result.FinalAddress, ChainValue: result.Value}
}
