package flow

import (
	"context"

	"github.com/kbukum/flowkit/resilience"
)

// Retrying wraps u so that Execute is retried according to cfg. Prepare and
// Finalize run once. Inside Execute, Attempt(ctx) reports the current attempt.
//
// When attempts run out, the last Execute error is returned unchanged.
func Retrying[S any](u Unit[S], cfg resilience.RetryConfig) Unit[S] {
	return &retrying[S]{inner: u, cfg: cfg}
}

type retrying[S any] struct {
	inner Unit[S]
	cfg   resilience.RetryConfig
}

func (r *retrying[S]) Prepare(ctx context.Context, state S) (any, error) {
	return r.inner.Prepare(ctx, state)
}

func (r *retrying[S]) Execute(ctx context.Context, prep any) (any, error) {
	return resilience.Retry(ctx, r.cfg, func(attempt int) (any, error) {
		return r.inner.Execute(withAttempt(ctx, attempt), prep)
	})
}

func (r *retrying[S]) Finalize(ctx context.Context, state S, prep, exec any) (Tag, error) {
	return r.inner.Finalize(ctx, state, prep, exec)
}

func (r *retrying[S]) Clone() Unit[S] {
	return &retrying[S]{inner: duplicate(r.inner), cfg: r.cfg}
}

// FallbackFunc produces an Execute result from the error that ended Execute.
type FallbackFunc func(ctx context.Context, prep any, err error) (any, error)

// Recovering wraps u so that a failed Execute is replaced by the result of
// fallback. Combine with Retrying to fall back only after retries run out:
//
//	flow.Recovering(flow.Retrying(u, cfg), fallback)
func Recovering[S any](u Unit[S], fallback FallbackFunc) Unit[S] {
	return &recovering[S]{inner: u, fallback: fallback}
}

type recovering[S any] struct {
	inner    Unit[S]
	fallback FallbackFunc
}

func (r *recovering[S]) Prepare(ctx context.Context, state S) (any, error) {
	return r.inner.Prepare(ctx, state)
}

func (r *recovering[S]) Execute(ctx context.Context, prep any) (any, error) {
	exec, err := r.inner.Execute(ctx, prep)
	if err != nil {
		return r.fallback(ctx, prep, err)
	}
	return exec, nil
}

func (r *recovering[S]) Finalize(ctx context.Context, state S, prep, exec any) (Tag, error) {
	return r.inner.Finalize(ctx, state, prep, exec)
}

func (r *recovering[S]) Clone() Unit[S] {
	return &recovering[S]{inner: duplicate(r.inner), fallback: r.fallback}
}
