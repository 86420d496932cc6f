package status

import (
	"sync"
	"time"
)

// State is a point-in-time view of the machine.
type State struct {
	Status   Status    `json:"status"`
	LastSync time.Time `json:"lastSync,omitzero"`
	Reason   string    `json:"reason,omitempty"`
}

// Machine tracks the current status together with sync bookkeeping.
// It is long-lived and has no terminal state. Safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	state State
}

// NewMachine creates a machine in the given initial status.
func NewMachine(initial Status) *Machine {
	return &Machine{state: State{Status: initial}}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply feeds ev through Transition and returns the resulting state.
func (m *Machine) Apply(ev Event) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Status = Transition(m.state.Status, ev)
	return m.state
}

// Fail applies ev and records reason as the last failure.
// The reason is kept until a later success clears it.
func (m *Machine) Fail(ev Event, reason string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Status = Transition(m.state.Status, ev)
	m.state.Reason = reason
	return m.state
}

// Succeed applies ev, stamps the last sync time and clears the failure reason.
func (m *Machine) Succeed(ev Event, at time.Time) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Status = Transition(m.state.Status, ev)
	m.state.LastSync = at
	m.state.Reason = ""
	return m.state
}

// Set replaces the status without going through Transition. It is used to
// restore a reconstructed or reconciled status.
func (m *Machine) Set(s Status) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Status = s
	return m.state
}
