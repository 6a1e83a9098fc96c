// Package metrics holds the small set of process-wide counters exposed by
// a server-status request (spec §4.8), extending it with operator-useful
// counts the way the teacher's Keepalive tracks in-flight/idle bookkeeping
// alongside the state it guards.
package metrics

import "sync/atomic"

// Counters is a set of monotonically increasing request/fault counters.
// Every field is accessed only through atomic ops; there is no mutex
// because each counter is independent and a snapshot need not be atomic
// across fields.
type Counters struct {
	requestsServed   atomic.Uint64
	faultsCaught     atomic.Uint64
	callsTimedOut    atomic.Uint64
	detoursInstalled atomic.Uint64
	eventsDropped    atomic.Uint64
}

// Snapshot is a point-in-time copy of Counters for reporting.
type Snapshot struct {
	RequestsServed   uint64
	FaultsCaught     uint64
	CallsTimedOut    uint64
	DetoursInstalled uint64
	EventsDropped    uint64
}

func (c *Counters) RequestServed()   { c.requestsServed.Add(1) }
func (c *Counters) FaultCaught()     { c.faultsCaught.Add(1) }
func (c *Counters) CallTimedOut()    { c.callsTimedOut.Add(1) }
func (c *Counters) DetourInstalled() { c.detoursInstalled.Add(1) }
func (c *Counters) EventDropped()    { c.eventsDropped.Add(1) }

// Snapshot reads every counter. Individual fields may be read at slightly
// different instants relative to each other; this is acceptable for a
// status report, not for invariant checks.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		RequestsServed:   c.requestsServed.Load(),
		FaultsCaught:     c.faultsCaught.Load(),
		CallsTimedOut:    c.callsTimedOut.Load(),
		DetoursInstalled: c.detoursInstalled.Load(),
		EventsDropped:    c.eventsDropped.Load(),
	}
}
