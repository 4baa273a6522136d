package llm

import (
	"strings"
	"sync"

	"bioneuro/backend/internal/llm/contract"
)

// Transcript is an append-only log of sealed turns. A reply that is still
// streaming lives in a separate Accumulator until it is committed.
type Transcript struct {
	mu      sync.RWMutex
	turns   []Turn
	pending *Accumulator
}

func (t *Transcript) Append(turn Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turn)
}

// Turns returns a copy of the sealed turns.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// History returns the exchanges worth replaying upstream: each user turn
// answered by a genuine assistant turn. Fallback replies and the user turns
// they answered are left out.
func (t *Transcript) History() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, 0, len(t.turns))
	for i := 0; i+1 < len(t.turns); i++ {
		user, reply := t.turns[i], t.turns[i+1]
		if user.Role != contract.RoleUser || reply.Role != contract.RoleAssistant {
			continue
		}
		if !reply.Fallback {
			out = append(out, user, reply)
		}
		i++
	}
	return out
}

// Open starts a new streaming assistant turn.
func (t *Transcript) Open() *Accumulator {
	t.mu.Lock()
	defer t.mu.Unlock()
	acc := &Accumulator{}
	t.pending = acc
	return acc
}

// Commit seals acc and appends it. A zero-length reply is not recorded.
func (t *Transcript) Commit(acc *Accumulator, fallback bool) Turn {
	turn := acc.Seal(fallback)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == acc {
		t.pending = nil
	}
	if turn.Text != "" {
		t.turns = append(t.turns, turn)
	}
	return turn
}

// Pending reports the partial text of a reply that is still streaming.
func (t *Transcript) Pending() (string, bool) {
	t.mu.RLock()
	acc := t.pending
	t.mu.RUnlock()
	if acc == nil {
		return "", false
	}
	return acc.Text(), true
}

// Accumulator collects fragments in arrival order. Once sealed it ignores
// further appends.
type Accumulator struct {
	mu     sync.Mutex
	text   strings.Builder
	sealed bool
}

func (a *Accumulator) Append(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return
	}
	a.text.WriteString(fragment)
}

func (a *Accumulator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.String()
}

func (a *Accumulator) Seal(fallback bool) Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
	return Turn{Role: contract.RoleAssistant, Text: a.text.String(), Fallback: fallback}
}
