package flow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
)

const (
	phasePrepare  = "prepare"
	phaseExecute  = "execute"
	phaseFinalize = "finalize"
)

// Traced wraps u so that each phase runs in its own span named
// "{name}.{phase}".
func Traced[S any](u Unit[S], name string) Unit[S] {
	return &tracedUnit[S]{inner: u, name: name}
}

type tracedUnit[S any] struct {
	inner Unit[S]
	name  string
}

func (t *tracedUnit[S]) span(ctx context.Context, phase string) (context.Context, trace.Span) {
	ctx, span := observability.StartSpan(ctx, t.name+"."+phase)
	observability.SetSpanAttribute(ctx, observability.AttrNode, t.name)
	observability.SetSpanAttribute(ctx, observability.AttrPhase, phase)
	return ctx, span
}

func (t *tracedUnit[S]) Prepare(ctx context.Context, state S) (any, error) {
	ctx, span := t.span(ctx, phasePrepare)
	defer span.End()
	prep, err := t.inner.Prepare(ctx, state)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return prep, err
}

func (t *tracedUnit[S]) Execute(ctx context.Context, prep any) (any, error) {
	ctx, span := t.span(ctx, phaseExecute)
	defer span.End()
	exec, err := t.inner.Execute(ctx, prep)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return exec, err
}

func (t *tracedUnit[S]) Finalize(ctx context.Context, state S, prep, exec any) (Tag, error) {
	ctx, span := t.span(ctx, phaseFinalize)
	defer span.End()
	tag, err := t.inner.Finalize(ctx, state, prep, exec)
	if err != nil {
		observability.SetSpanError(ctx, err)
	} else {
		observability.SetSpanAttribute(ctx, observability.AttrTag, string(tag))
	}
	return tag, err
}

func (t *tracedUnit[S]) Clone() Unit[S] {
	return &tracedUnit[S]{inner: duplicate(t.inner), name: t.name}
}

// Metered wraps u and records a unit.errors point for every failing phase.
// Whole-step counts and durations come from the flow's WithMetrics option.
func Metered[S any](u Unit[S], name string, m *observability.Metrics) Unit[S] {
	return &meteredUnit[S]{inner: u, name: name, metrics: m}
}

type meteredUnit[S any] struct {
	inner   Unit[S]
	name    string
	metrics *observability.Metrics
}

func (m *meteredUnit[S]) Prepare(ctx context.Context, state S) (any, error) {
	prep, err := m.inner.Prepare(ctx, state)
	if err != nil {
		m.metrics.RecordUnitError(ctx, m.name, phasePrepare)
	}
	return prep, err
}

func (m *meteredUnit[S]) Execute(ctx context.Context, prep any) (any, error) {
	exec, err := m.inner.Execute(ctx, prep)
	if err != nil {
		m.metrics.RecordUnitError(ctx, m.name, phaseExecute)
	}
	return exec, err
}

func (m *meteredUnit[S]) Finalize(ctx context.Context, state S, prep, exec any) (Tag, error) {
	tag, err := m.inner.Finalize(ctx, state, prep, exec)
	if err != nil {
		m.metrics.RecordUnitError(ctx, m.name, phaseFinalize)
	}
	return tag, err
}

func (m *meteredUnit[S]) Clone() Unit[S] {
	return &meteredUnit[S]{inner: duplicate(m.inner), name: m.name, metrics: m.metrics}
}

// Logged wraps u with per-phase logging: debug records on success and an
// error record naming the failing phase.
func Logged[S any](u Unit[S], name string, log *logger.Logger) Unit[S] {
	return &loggedUnit[S]{inner: u, name: name, log: log}
}

type loggedUnit[S any] struct {
	inner Unit[S]
	name  string
	log   *logger.Logger
}

func (l *loggedUnit[S]) record(ctx context.Context, phase string, started time.Time, err error) {
	fields := logger.DurationFields(l.name, time.Since(started))
	fields[logger.FieldPhase] = phase
	if attempt := Attempt(ctx); attempt > 1 {
		fields[logger.FieldAttempt] = attempt
	}
	log := l.log.WithContext(ctx)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		log.Error("unit phase failed", fields)
		return
	}
	log.Debug("unit phase completed", fields)
}

func (l *loggedUnit[S]) Prepare(ctx context.Context, state S) (any, error) {
	started := time.Now()
	prep, err := l.inner.Prepare(ctx, state)
	l.record(ctx, phasePrepare, started, err)
	return prep, err
}

func (l *loggedUnit[S]) Execute(ctx context.Context, prep any) (any, error) {
	started := time.Now()
	exec, err := l.inner.Execute(ctx, prep)
	l.record(ctx, phaseExecute, started, err)
	return exec, err
}

func (l *loggedUnit[S]) Finalize(ctx context.Context, state S, prep, exec any) (Tag, error) {
	started := time.Now()
	tag, err := l.inner.Finalize(ctx, state, prep, exec)
	l.record(ctx, phaseFinalize, started, err)
	return tag, err
}

func (l *loggedUnit[S]) Clone() Unit[S] {
	return &loggedUnit[S]{inner: duplicate(l.inner), name: l.name, log: l.log}
}
