package decoder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"bioneuro/backend/internal/flow"
)

var ErrEmptyInput = errors.New("symptom text is required")

// Result is a reading ready for display.
type Result struct {
	RuleID   string `json:"rule_id"`
	Bundle   Bundle `json:"bundle"`
	Closing  string `json:"closing"`
	DeepLink string `json:"deep_link"`
}

type Snapshot struct {
	State  flow.State `json:"state"`
	Input  string     `json:"input"`
	Result *Result    `json:"result,omitempty"`
}

// Widget drives idle -> decoding -> result for one visitor. The delay is
// cosmetic; classification itself is instant.
type Widget struct {
	classifier *Classifier
	links      LinkBuilder
	delay      time.Duration
	machine    flow.Machine

	mu     sync.Mutex
	input  string
	result *Result
}

func NewWidget(classifier *Classifier, links LinkBuilder, delay time.Duration) *Widget {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Widget{classifier: classifier, links: links, delay: delay}
}

func (w *Widget) Submit(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInput
	}
	if err := w.machine.Begin(); err != nil {
		return Result{}, err
	}
	w.mu.Lock()
	w.input = text
	w.result = nil
	w.mu.Unlock()

	if w.delay > 0 {
		timer := time.NewTimer(w.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.machine.Finish(ctx.Err())
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	matched := w.classifier.Lookup(text)
	result := Result{
		RuleID:   matched.ID,
		Bundle:   matched.Bundle,
		Closing:  Closing,
		DeepLink: w.links.Build(text, matched.Bundle),
	}
	w.mu.Lock()
	w.result = &result
	w.mu.Unlock()
	w.machine.Finish(nil)
	return result, nil
}

func (w *Widget) Reset() error {
	if err := w.machine.Reset(); err != nil {
		return err
	}
	w.mu.Lock()
	w.input = ""
	w.result = nil
	w.mu.Unlock()
	return nil
}

func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{State: w.machine.State(), Input: w.input}
	if w.result != nil {
		copied := *w.result
		snap.Result = &copied
	}
	return snap
}
