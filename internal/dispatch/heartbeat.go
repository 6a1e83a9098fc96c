package dispatch

import "github.com/gwnexus/bridge/internal/wire"

// handleHeartbeat echoes the client's timestamp, reports the server's own
// clock, and computes latency as serverTick-clientTick in wraparound-safe
// unsigned arithmetic (spec §8): subtraction is performed modulo 2^64, so
// a client clock that has wrapped relative to the server's still yields a
// meaningful (if large) latency rather than a negative one.
func (d *Dispatcher) handleHeartbeat(req *wire.Request) *wire.Response {
	serverTick := uint64(d.now().UnixMilli())
	return &wire.Response{
		Success:                  true,
		HeartbeatClientTimestamp: req.ClientTimestamp,
		HeartbeatServerTimestamp: serverTick,
		HeartbeatLatency:         serverTick - req.ClientTimestamp,
	}
}
