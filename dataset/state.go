package dataset

import (
	"fmt"
	"sync"
)

// State enumerates the phases of dataset preparation.
type State int

const (
	// NotPrepared is the initial state before any preparation run.
	NotPrepared State = iota
	// Preparing means a run is consuming the source; Status.Count holds
	// the number of examples decoded so far.
	Preparing
	// Ready means the last run finished and its Batch was handed off.
	Ready
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case NotPrepared:
		return "NotPrepared"
	case Preparing:
		return "Preparing"
	case Ready:
		return "Ready"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Status is a point-in-time snapshot of the preparation state machine.
type Status struct {
	State State
	Count int
}

// Tracker is the preparation state machine. It starts NotPrepared,
// moves to Preparing when a run begins, updates its count on every
// progress tick, and lands on Ready when the run completes. A new run
// re-enters Preparing with a zero count. There is no transition back
// to NotPrepared. Only the Builder mutates a Tracker; everyone else
// observes it through Snapshot and Subscribe.
type Tracker struct {
	mu    sync.RWMutex
	state State
	count int
	subs  []func(Status)
}

// NewTracker returns a tracker in the NotPrepared state.
func NewTracker() *Tracker {
	return &Tracker{state: NotPrepared}
}

// Snapshot returns the current state and count.
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Status{State: t.state, Count: t.count}
}

// Subscribe registers fn to run on every subsequent transition.
// Transitions are serialized by the Builder, so fn observes counts in
// non-decreasing order and Ready strictly after the last tick. fn runs
// on the dispatch goroutine and must not block.
func (t *Tracker) Subscribe(fn func(Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
}

// begin enters Preparing with a zero count.
func (t *Tracker) begin() {
	t.publish(Preparing, 0)
}

// tick records another decoded example while Preparing.
func (t *Tracker) tick(count int) {
	t.publish(Preparing, count)
}

// finish enters Ready, keeping the final count.
func (t *Tracker) finish() {
	t.mu.RLock()
	count := t.count
	t.mu.RUnlock()
	t.publish(Ready, count)
}

func (t *Tracker) publish(state State, count int) {
	t.mu.Lock()
	t.state = state
	t.count = count
	subs := make([]func(Status), len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	status := Status{State: state, Count: count}
	for _, fn := range subs {
		fn(status)
	}
}
