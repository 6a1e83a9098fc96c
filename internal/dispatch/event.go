package dispatch

import (
	"encoding/binary"

	"github.com/gwnexus/bridge/internal/errs"
	"github.com/gwnexus/bridge/internal/registry"
	"github.com/gwnexus/bridge/internal/wire"
)

// eventRecordHeaderSize is id(4) + timestamp(4) + payload length(2) for
// each event packed into a poll response's raw event batch buffer.
const eventRecordHeaderSize = 4 + 4 + 2

func (d *Dispatcher) handleEvent(req *wire.Request) *wire.Response {
	switch req.Kind {
	case wire.KindEventRegister:
		if err := d.Events.Register(req.Name, req.BufferAddress, req.BufferSize, int(req.MaxEvents)); err != nil {
			return wire.Fail(err.Error())
		}
		return &wire.Response{Success: true}
	case wire.KindEventUnregister:
		if err := d.Events.Unregister(req.Name); err != nil {
			return wire.Fail(err.Error())
		}
		return &wire.Response{Success: true}
	case wire.KindEventPoll:
		return d.handleEventPoll(req)
	default:
		return wire.Fail(errs.UnknownKind("unrecognized event request kind %d", uint32(req.Kind)).Error())
	}
}

func (d *Dispatcher) handleEventPoll(req *wire.Request) *wire.Response {
	max := int(req.MaxEvents)
	if max <= 0 || max > wire.MaxEventPoll {
		max = wire.MaxEventPoll
	}
	cost := func(e registry.Event) int { return eventRecordHeaderSize + len(e.Payload) }
	events, err := d.Events.PollWithBudget(req.Name, max, wire.MaxWritePayload, cost)
	if err != nil {
		return wire.Fail(err.Error())
	}

	resp := &wire.Response{Success: true, EventCount: uint32(len(events))}
	// Each drained event is packed as id(4)+timestamp(4)+payload-len(2)+
	// payload into the batch buffer in order, so count and ids match the
	// events actually removed from the ring (spec §4.7, §8 scenario 6):
	// none are silently discarded the way a single inline payload would.
	off := 0
	for _, e := range events {
		binary.LittleEndian.PutUint32(resp.EventPayload[off:], e.ID)
		binary.LittleEndian.PutUint32(resp.EventPayload[off+4:], e.Timestamp)
		binary.LittleEndian.PutUint16(resp.EventPayload[off+8:], uint16(len(e.Payload)))
		off += eventRecordHeaderSize
		off += copy(resp.EventPayload[off:], e.Payload)
	}
	return resp
}
