package dispatch

import (
	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/memaccess"
	"github.com/gwnexus/bridge/internal/wire"
)

func (d *Dispatcher) handleBulkRead(req *wire.Request) *wire.Response {
	switch req.Kind {
	case wire.KindArrayRead:
		return d.handleArrayRead(req)
	case wire.KindBatchRead:
		return d.handleBatchRead(req)
	default:
		return wire.Fail(errs.UnknownKind("unrecognized bulk-read request kind %d", uint32(req.Kind)).Error())
	}
}

func (d *Dispatcher) handleArrayRead(req *wire.Request) *wire.Response {
	data, elemSize, err := memaccess.ReadArray(d.Accessor, req.Base, req.ElementType, req.Count)
	if err != nil {
		if d.Metrics != nil && errs.Classify(err) == errs.KindAccessViolation {
			d.Metrics.FaultCaught()
		}
		return wire.Fail(err.Error())
	}
	resp := &wire.Response{
		Success:          true,
		ArrayElementType: req.ElementType,
		ArrayCount:       req.Count,
		ArrayElementSize: elemSize,
		ArrayTotalSize:   uint32(len(data)),
	}
	copy(resp.ArrayPayload[:], data)
	return resp
}

func (d *Dispatcher) handleBatchRead(req *wire.Request) *wire.Response {
	if req.BatchCount > wire.MaxBatchEntries {
		return wire.Fail(errs.InvalidArgument("batch has %d entries, max %d", req.BatchCount, wire.MaxBatchEntries).Error())
	}
	entries := make([]memaccess.BatchEntry, req.BatchCount)
	for i := range entries {
		entries[i] = memaccess.BatchEntry{Address: req.BatchAddresses[i], Size: req.BatchSizes[i]}
	}

	result, err := memaccess.ReadBatch(d.Accessor, entries)
	if err != nil {
		return wire.Fail(err.Error())
	}
	if !result.AnyOK {
		return wire.Fail(errs.AccessViolation("batch read: every entry failed").Error())
	}

	resp := &wire.Response{Success: true, BatchCount: req.BatchCount}
	var mask uint32
	for i, ok := range result.Success {
		if ok {
			mask |= 1 << uint(i)
		}
	}
	resp.BatchSuccessMask = mask
	resp.BatchValues = result.Values
	return resp
}
