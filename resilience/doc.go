// Package resilience provides the retry, rate limiting and circuit breaking
// helpers that flow units use around unreliable work.
//
// The flow runner never retries on a unit's behalf. A unit that talks to an
// external service either calls Retry inside its Execute phase or is wrapped
// with flow.Retrying, which does the same thing for the Execute phase only:
//
//	answer, err := resilience.Retry(ctx, cfg, func(attempt int) (string, error) {
//	    return client.Complete(ctx, prompt)
//	})
//
// Limiter is a token bucket shared by every unit instance that talks to the
// same service, so concurrent flow runs stay under one request budget.
// CircuitBreaker is shared the same way; once the service keeps failing it
// rejects calls with ErrCircuitOpen until its cool-down has passed.
package resilience
