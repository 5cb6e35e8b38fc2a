package flow

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
)

// Option configures a Flow.
type Option func(*settings)

type settings struct {
	name      string
	log       *logger.Logger
	observers []Observer
	maxSteps  int
	metrics   *observability.Metrics
	tracing   bool
}

// WithName names the flow in logs, spans, metrics and step events.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithLogger sets the logger for run and step records.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithObserver adds an observer notified after every step.
func WithObserver(o Observer) Option {
	return func(s *settings) { s.observers = append(s.observers, o) }
}

// WithMaxSteps stops a run with a MAX_STEPS_EXCEEDED error once n units have
// executed and another is due. Zero, the default, means no limit.
func WithMaxSteps(n int) Option {
	return func(s *settings) { s.maxSteps = n }
}

// WithMetrics records run and step metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithTracing opens a span per run and a child span per step.
func WithTracing() Option {
	return func(s *settings) { s.tracing = true }
}

// Flow drives a graph of nodes from a start node until a tag has no
// successor. A Flow is safe for concurrent use once the graph is built.
type Flow[S any] struct {
	start *Node[S]
	settings
}

// New creates a flow starting at start.
func New[S any](start *Node[S], opts ...Option) *Flow[S] {
	if start == nil {
		panic("flow: nil start node")
	}
	s := settings{name: start.name}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.WithComponent("flow")
	}
	return &Flow[S]{start: start, settings: s}
}

// Name returns the flow name.
func (f *Flow[S]) Name() string { return f.name }

// Start returns the start node.
func (f *Flow[S]) Start() *Node[S] { return f.start }

// Run executes the graph against state and returns the last tag produced.
//
// Each visited node runs a fresh unit instance. If a phase fails, the run
// stops and that error is returned as is together with an empty tag.
func (f *Flow[S]) Run(ctx context.Context, state S) (Tag, error) {
	runID := logger.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.ContextWithRunID(ctx, runID)
	}

	if f.tracing {
		var span trace.Span
		ctx, span = observability.StartSpan(ctx, observability.SpanFlowRun)
		defer span.End()
		observability.SetSpanAttribute(ctx, observability.AttrFlow, f.name)
		observability.SetSpanAttribute(ctx, observability.AttrRunID, runID)
	}
	if f.metrics != nil {
		f.metrics.RecordFlowStart(ctx, f.name)
	}

	log := f.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldFlow, f.name))
	started := time.Now()

	tag, steps, err := f.drive(ctx, state, runID, log)

	elapsed := time.Since(started)
	status := "ok"
	if err != nil {
		status = "error"
		if f.tracing {
			observability.SetSpanError(ctx, err)
		}
		log.Debug("flow run failed", logger.Fields(
			logger.FieldStep, steps,
			logger.FieldError, err.Error(),
			logger.FieldDuration, elapsed.Milliseconds(),
		))
	} else {
		if f.tracing {
			observability.SetSpanAttribute(ctx, observability.AttrTag, string(tag))
		}
		log.Debug("flow run completed", logger.Fields(
			logger.FieldStep, steps,
			logger.FieldTag, string(tag),
			logger.FieldDuration, elapsed.Milliseconds(),
		))
	}
	if f.metrics != nil {
		f.metrics.RecordFlowEnd(ctx, f.name, string(tag), status, elapsed)
	}
	return tag, err
}

// drive is the dispatch loop. It returns the last tag and the number of units
// executed.
func (f *Flow[S]) drive(ctx context.Context, state S, runID string, log *logger.Logger) (Tag, int, error) {
	current := f.start
	last := DefaultTag
	steps := 0
	var prev string

	for current != nil {
		if f.maxSteps > 0 && steps >= f.maxSteps {
			return "", steps, errors.MaxStepsExceeded(f.maxSteps, prev)
		}
		steps++

		tag, err := f.step(ctx, current, state, runID, steps, log)
		if err != nil {
			return "", steps, err
		}
		last = tag
		prev = current.name
		current = current.Next(tag)
	}
	return last, steps, nil
}

func (f *Flow[S]) step(ctx context.Context, n *Node[S], state S, runID string, step int, log *logger.Logger) (Tag, error) {
	if f.tracing {
		var span trace.Span
		ctx, span = observability.StartSpan(ctx, observability.SpanFlowStep)
		defer span.End()
		observability.SetSpanAttribute(ctx, observability.AttrNode, n.name)
		observability.SetSpanAttribute(ctx, observability.AttrStep, step)
	}

	started := time.Now()
	tag, err := RunUnit(withStep(ctx, step), n.instance(), state)
	elapsed := time.Since(started)

	status := "ok"
	if err != nil {
		status = "error"
		if f.tracing {
			observability.SetSpanError(ctx, err)
		}
		log.Debug("step failed", logger.Fields(
			logger.FieldNode, n.name,
			logger.FieldStep, step,
			logger.FieldError, err.Error(),
		))
	} else {
		if f.tracing {
			observability.SetSpanAttribute(ctx, observability.AttrTag, string(tag))
		}
		log.Debug("step completed", logger.Fields(
			logger.FieldNode, n.name,
			logger.FieldStep, step,
			logger.FieldTag, string(tag),
			logger.FieldDuration, elapsed.Milliseconds(),
		))
	}
	if f.metrics != nil {
		f.metrics.RecordUnit(ctx, n.name, string(tag), status, elapsed)
	}

	if len(f.observers) > 0 {
		ev := StepEvent{
			RunID:    runID,
			Flow:     f.name,
			Node:     n.name,
			Step:     step,
			Tag:      tag,
			Started:  started,
			Duration: elapsed,
			Err:      err,
		}
		for _, o := range f.observers {
			o.OnStep(ctx, ev)
		}
	}
	return tag, err
}

// Nodes returns every node reachable from the start node in breadth-first
// order. Tags are visited in sorted order so the result is stable.
func (f *Flow[S]) Nodes() []*Node[S] {
	seen := map[*Node[S]]bool{f.start: true}
	queue := []*Node[S]{f.start}
	for i := 0; i < len(queue); i++ {
		n := queue[i]
		tags := make([]Tag, 0, len(n.successors))
		for tag := range n.successors {
			tags = append(tags, tag)
		}
		slices.Sort(tags)
		for _, tag := range tags {
			next := n.successors[tag]
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return queue
}

// NodeInfo is a serializable view of one node in a flow.
type NodeInfo struct {
	Name       string         `json:"name"`
	Successors map[Tag]string `json:"successors,omitempty"`
}

// Describe returns the reachable topology of the flow, start node first.
func (f *Flow[S]) Describe() []NodeInfo {
	nodes := f.Nodes()
	out := make([]NodeInfo, 0, len(nodes))
	for _, n := range nodes {
		info := NodeInfo{Name: n.name}
		if len(n.successors) > 0 {
			info.Successors = make(map[Tag]string, len(n.successors))
			for tag, next := range n.successors {
				info.Successors[tag] = next.name
			}
		}
		out = append(out, info)
	}
	return out
}
