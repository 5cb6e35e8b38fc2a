package flow

import (
	"context"
	"strconv"

	"github.com/kbukum/flowkit/logger"
)

type (
	attemptKey struct{}
	stepKey    struct{}
)

// RunID returns the id of the run ctx belongs to, or "" outside a run.
func RunID(ctx context.Context) string {
	return logger.RunIDFromContext(ctx)
}

// ContextWithRunID makes the next Flow.Run on ctx use id instead of generating one.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return logger.ContextWithRunID(ctx, id)
}

// Attempt returns the 1-based Execute attempt set by Retrying. It is 1 when
// the unit is not wrapped.
func Attempt(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok {
		return n
	}
	return 1
}

// UnderRetry reports whether ctx comes from a Retrying decorator, so a unit
// with its own retry loop can make a single attempt instead.
func UnderRetry(ctx context.Context) bool {
	_, ok := ctx.Value(attemptKey{}).(int)
	return ok
}

func withStep(ctx context.Context, step int) context.Context {
	return context.WithValue(ctx, stepKey{}, step)
}

// childRunID names a run nested in the current step: "<run>/<step>", plus
// ".<suffix>" when one step starts several. It is "" outside a run, so the
// nested run generates its own id.
func childRunID(ctx context.Context, suffix string) string {
	parent := RunID(ctx)
	step, ok := ctx.Value(stepKey{}).(int)
	if parent == "" || !ok {
		return ""
	}
	id := parent + "/" + strconv.Itoa(step)
	if suffix != "" {
		id += "." + suffix
	}
	return id
}

func withAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, attemptKey{}, n)
}
