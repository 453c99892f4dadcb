package uploads

import (
	"errors"
	"fmt"
	"sync"
)

// State is a step of one upload pipeline.
type State int

const (
	StateIdle State = iota
	StateReceiving
	StateValidating
	StateStreaming
	StateRejected
	StateAborted
	StateFailed
	StateCompleted
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateReceiving:  "receiving",
	StateValidating: "validating",
	StateStreaming:  "streaming",
	StateRejected:   "rejected",
	StateAborted:    "aborted",
	StateFailed:     "failed",
	StateCompleted:  "completed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no transition may leave s.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateAborted, StateFailed, StateCompleted:
		return true
	}
	return false
}

var allowedTransitions = map[State][]State{
	StateIdle:       {StateReceiving},
	StateReceiving:  {StateValidating, StateRejected, StateFailed},
	StateValidating: {StateRejected, StateStreaming},
	StateStreaming:  {StateAborted, StateFailed, StateCompleted},
}

var (
	ErrInvalidTransition = errors.New("invalid upload state transition")
	ErrAlreadyResolved   = errors.New("upload already resolved")
)

// Machine is the per-request state machine. Transition is the only way the
// state changes, so an upload resolves exactly once.
type Machine struct {
	mu    sync.Mutex
	state State
	prev  State
}

// NewMachine returns a machine in StateIdle.
func NewMachine() *Machine {
	return &Machine{}
}

// Transition moves to next or reports why it cannot.
func (m *Machine) Transition(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrAlreadyResolved, m.state, next)
	}
	for _, allowed := range allowedTransitions[m.state] {
		if allowed == next {
			m.prev, m.state = m.state, next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, next)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Label describes the last transition, for example "streaming->completed".
func (m *Machine) Label() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle {
		return StateIdle.String()
	}
	return m.prev.String() + "->" + m.state.String()
}
