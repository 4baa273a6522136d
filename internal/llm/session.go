package llm

import (
	"time"

	"bioneuro/backend/internal/flow"
)

// Session is one visitor's conversation: a system instruction fixed at
// creation, the transcript, and the machine that keeps a single turn in
// flight.
type Session struct {
	ID        string
	CreatedAt time.Time

	system     string
	transcript Transcript
	machine    flow.Machine
}

func NewSession(id, system string) *Session {
	if system == "" {
		system = DefaultSystemInstruction
	}
	return &Session{ID: id, CreatedAt: time.Now().UTC(), system: system}
}

func (s *Session) System() string { return s.system }

func (s *Session) Greeting() string { return Greeting }

func (s *Session) Turns() []Turn { return s.transcript.Turns() }

// Pending returns the partial text of a streaming reply, if any.
func (s *Session) Pending() (string, bool) { return s.transcript.Pending() }

func (s *Session) State() flow.State { return s.machine.State() }

// Close marks the session as finished. It fails with flow.ErrBusy while a
// turn is in flight.
func (s *Session) Close() error { return s.machine.Reset() }
