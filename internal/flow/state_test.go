package flow

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMachineTransitions(t *testing.T) {
	var m Machine
	if m.State() != Idle {
		t.Fatalf("zero machine should be idle, got %s", m.State())
	}
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := m.Begin(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy on second begin, got %v", err)
	}
	if err := m.Reset(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy on reset while pending, got %v", err)
	}
	m.Finish(nil)
	if m.State() != Done {
		t.Fatalf("expected done, got %s", m.State())
	}
	if err := m.Begin(); err != nil {
		t.Fatalf("begin from done: %v", err)
	}
	m.Finish(errors.New("boom"))
	if m.State() != Failed {
		t.Fatalf("expected failed, got %s", m.State())
	}
	if err := m.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if m.State() != Idle {
		t.Fatalf("expected idle after reset, got %s", m.State())
	}
}

func TestFinishWithoutBeginIsNoop(t *testing.T) {
	var m Machine
	m.Finish(nil)
	if m.State() != Idle {
		t.Fatalf("expected idle, got %s", m.State())
	}
}

func TestOnlyOneConcurrentBegin(t *testing.T) {
	var m Machine
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Begin() == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}
