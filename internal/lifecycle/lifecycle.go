// Package lifecycle tracks the server process's own run state,
// replacing the teacher's pkg/lifecycle.LifecycleManager (which
// modeled starting/stopping/reloading named plugins) with the one
// process this domain manages: the server singleton itself, moving
// through the states spec.md §4.2/§4.3 describe.
package lifecycle

import "sync/atomic"

// State is one point in the server's run state machine.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Tracker holds the current state as an atomic int32, safe to read
// from the SIGUSR1 status handler while the dispatcher goroutine
// mutates it.
type Tracker struct {
	state atomic.Int32
}

// NewTracker starts in StateStarting.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.state.Store(int32(StateStarting))
	return t
}

// Set transitions to a new state.
func (t *Tracker) Set(s State) { t.state.Store(int32(s)) }

// Get reads the current state.
func (t *Tracker) Get() State { return State(t.state.Load()) }
