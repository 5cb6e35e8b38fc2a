package flow

import (
	"context"
	"sync"
	"time"
)

// StepEvent describes one finished unit execution inside a run.
type StepEvent struct {
	RunID    string        `json:"run_id"`
	Flow     string        `json:"flow"`
	Node     string        `json:"node"`
	Step     int           `json:"step"`
	Tag      Tag           `json:"tag,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Failed reports whether the step ended with an error.
func (e StepEvent) Failed() bool { return e.Err != nil }

// StepView is the serializable form of a StepEvent.
type StepView struct {
	Step       int    `json:"step"`
	Node       string `json:"node"`
	Tag        Tag    `json:"tag,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// View returns the serializable form of e.
func (e StepEvent) View() StepView {
	v := StepView{Step: e.Step, Node: e.Node, Tag: e.Tag, DurationMs: e.Duration.Milliseconds()}
	if e.Err != nil {
		v.Error = e.Err.Error()
	}
	return v
}

// Views converts events, keeping their order.
func Views(events []StepEvent) []StepView {
	out := make([]StepView, len(events))
	for i, ev := range events {
		out[i] = ev.View()
	}
	return out
}

// Observer receives step events synchronously from the goroutine running the
// flow. Implementations must be safe for concurrent use when the flow is run
// from several goroutines.
type Observer interface {
	OnStep(ctx context.Context, ev StepEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev StepEvent)

func (f ObserverFunc) OnStep(ctx context.Context, ev StepEvent) { f(ctx, ev) }

// Recorder is an Observer that keeps the step events of each run, keyed by
// run id.
type Recorder struct {
	mu   sync.RWMutex
	runs map[string][]StepEvent
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{runs: make(map[string][]StepEvent)}
}

func (r *Recorder) OnStep(_ context.Context, ev StepEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[ev.RunID] = append(r.runs[ev.RunID], ev)
}

// Events returns a copy of the events recorded for runID in step order.
func (r *Recorder) Events(runID string) []StepEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	evs := r.runs[runID]
	out := make([]StepEvent, len(evs))
	copy(out, evs)
	return out
}

// Forget drops the events recorded for runID.
func (r *Recorder) Forget(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
}
