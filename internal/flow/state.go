// Package flow holds the per-widget state machine that guarantees at most
// one in-flight operation at a time.
package flow

import (
	"errors"
	"sync"
	"time"
)

type State string

const (
	Idle    State = "idle"
	Pending State = "pending"
	Done    State = "done"
	Failed  State = "failed"
)

var ErrBusy = errors.New("operation already in progress")

type Machine struct {
	mu      sync.Mutex
	state   State
	changed time.Time
}

// Begin moves the machine to Pending. It fails with ErrBusy when an
// operation is already pending.
func (m *Machine) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Pending {
		return ErrBusy
	}
	m.set(Pending)
	return nil
}

// Finish closes the pending operation. Calling it while not pending is a no-op.
func (m *Machine) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Pending {
		return
	}
	if err != nil {
		m.set(Failed)
		return
	}
	m.set(Done)
}

func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Pending {
		return ErrBusy
	}
	m.set(Idle)
	return nil
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == "" {
		return Idle
	}
	return m.state
}

func (m *Machine) Since() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed
}

func (m *Machine) set(state State) {
	m.state = state
	m.changed = time.Now().UTC()
}
