// Package lifecycle models the process-wide state atom that gates every
// request (spec §4.8, §5, §9 "Singletons with module-wide state").
package lifecycle

import "sync/atomic"

// State is one of the four lifecycle states.
type State int32

const (
	Initializing State = iota
	Running
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case Running:
		return "Running"
	case ShuttingDown:
		return "ShuttingDown"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Atom is an atomic, compare-exchange-gated lifecycle state. The spec
// models this as a single process-wide instance; per design note §9 we
// keep it an explicit owned value created by the bridge constructor and
// passed by reference, rather than a package-level global.
type Atom struct {
	v atomic.Int32
}

// New returns an Atom initialized to Initializing.
func New() *Atom {
	a := &Atom{}
	a.v.Store(int32(Initializing))
	return a
}

// Load returns the current state.
func (a *Atom) Load() State {
	return State(a.v.Load())
}

// CompareAndSwap transitions from `from` to `to` iff currently `from`.
func (a *Atom) CompareAndSwap(from, to State) bool {
	return a.v.CompareAndSwap(int32(from), int32(to))
}

// Store unconditionally sets the state. Used at startup (->Running) and
// for forced transitions (loader detach -> Stopped) where no prior state
// needs to be verified.
func (a *Atom) Store(s State) {
	a.v.Store(int32(s))
}

// Accepting reports whether the bridge should route requests instead of
// failing them with ShuttingDown (spec §4.2: dispatcher checks this
// before routing).
func (a *Atom) Accepting() bool {
	return a.Load() == Running
}

// RequestShutdown performs the Running -> ShuttingDown transition.
// Returns false if the atom was not in Running (e.g. already shutting
// down, or never started) -- callers should treat that as a no-op, not
// an error.
func (a *Atom) RequestShutdown() bool {
	return a.CompareAndSwap(Running, ShuttingDown)
}
