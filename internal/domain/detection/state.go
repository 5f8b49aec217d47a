package detection

import "fmt"

// State is a step of the detection workflow.
type State int

const (
	Idle State = iota
	Built
	Sent
	Parsed
	Stored
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Built:
		return "built"
	case Sent:
		return "sent"
	case Parsed:
		return "parsed"
	case Stored:
		return "stored"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Stored || s == Failed }

var next = map[State]State{
	Idle:   Built,
	Built:  Sent,
	Sent:   Parsed,
	Parsed: Stored,
}

// Machine tracks one workflow run. The zero value is Idle.
type Machine struct {
	state    State
	failedAt State
	err      error
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Err returns the error that failed the run, if any.
func (m *Machine) Err() error { return m.err }

// FailedAt returns the state the run was in when it failed.
// It is meaningful only once State is Failed.
func (m *Machine) FailedAt() State { return m.failedAt }

// Advance moves to the next state. Skipping a step or leaving a
// terminal state is a programming error and is reported as such.
func (m *Machine) Advance(to State) error {
	if m.state.Terminal() {
		return fmt.Errorf("detection: transition %s -> %s from terminal state", m.state, to)
	}
	if next[m.state] != to {
		return fmt.Errorf("detection: illegal transition %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}

// Fail moves to Failed and returns err unchanged.
func (m *Machine) Fail(err error) error {
	if !m.state.Terminal() {
		m.failedAt = m.state
		m.state = Failed
		m.err = err
	}
	return err
}
