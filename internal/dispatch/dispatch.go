// Package dispatch decides, frame by frame, whether a finger count must be sent
// to the actuator controller.
//
// Dispatch is change-triggered and rate limited: a new count is emitted only when
// it differs from the last emitted count and more than the debounce interval has
// passed since the last emission. Losing the hand emits the neutral command once,
// regardless of the debounce timer.
package dispatch

import (
	"time"

	"github.com/ayusman/mudra/internal/protocol"
)

// DefaultDebounce is the minimum spacing between two count changes on the wire.
const DefaultDebounce = 300 * time.Millisecond

// State is the tracking state of the dispatcher.
type State int

const (
	// Idle means no hand was present on the last frame.
	Idle State = iota
	// HandTracked means a hand was present on the last frame.
	HandTracked
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case HandTracked:
		return "tracking"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason tells why a command was emitted.
type Reason string

const (
	ReasonChanged  Reason = "changed"
	ReasonHandLost Reason = "hand_lost"
	ReasonShutdown Reason = "shutdown"
)

// Decision is an emitted command and the rule that produced it.
type Decision struct {
	Command protocol.Command
	Reason  Reason
}

// Snapshot is a copy of the dispatcher state.
type Snapshot struct {
	State State
	// LastCount is meaningful only when HasLastCount is true.
	LastCount    int
	HasLastCount bool
	// LastSentAt is the zero time until the first count change is emitted.
	LastSentAt time.Time
}

// Dispatcher holds the last emitted count and emission time.
// It is not safe for concurrent use; the frame loop is its only caller.
type Dispatcher struct {
	debounce time.Duration

	state     State
	lastCount int
	hasCount  bool
	lastSent  time.Time
	hasSent   bool
}

// New creates a Dispatcher. A negative debounce is treated as zero.
func New(debounce time.Duration) *Dispatcher {
	if debounce < 0 {
		debounce = 0
	}
	return &Dispatcher{
		debounce: debounce,
		state:    Idle,
	}
}

// Debounce returns the configured debounce interval.
func (d *Dispatcher) Debounce() time.Duration {
	return d.debounce
}

// Dispatch evaluates one frame. It returns the decision and true when a command
// must be sent. The state advances as soon as a decision is returned; callers do
// not roll it back when the write fails.
func (d *Dispatcher) Dispatch(count int, handPresent bool, now time.Time) (Decision, bool) {
	if !handPresent {
		return d.handLost()
	}

	d.state = HandTracked

	cmd, err := protocol.Encode(count)
	if err != nil {
		return Decision{}, false
	}
	if d.hasCount && count == d.lastCount {
		return Decision{}, false
	}
	if d.hasSent && now.Sub(d.lastSent) <= d.debounce {
		return Decision{}, false
	}

	d.lastCount = count
	d.hasCount = true
	d.lastSent = now
	d.hasSent = true

	return Decision{Command: cmd, Reason: ReasonChanged}, true
}

func (d *Dispatcher) handLost() (Decision, bool) {
	d.state = Idle

	if d.hasCount && d.lastCount == protocol.MinCount {
		return Decision{}, false
	}

	d.lastCount = protocol.MinCount
	d.hasCount = true

	return Decision{Command: protocol.Neutral, Reason: ReasonHandLost}, true
}

// Shutdown returns the neutral command for the end of the session.
// It does not read or modify the dispatcher state.
func (d *Dispatcher) Shutdown() Decision {
	return Decision{Command: protocol.Neutral, Reason: ReasonShutdown}
}

// Snapshot returns a copy of the current state.
func (d *Dispatcher) Snapshot() Snapshot {
	return Snapshot{
		State:        d.state,
		LastCount:    d.lastCount,
		HasLastCount: d.hasCount,
		LastSentAt:   d.lastSent,
	}
}
