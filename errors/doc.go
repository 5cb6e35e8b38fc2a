// Package errors provides the structured error type used by flowkit's
// definition loader, run API and service adapters.
//
// The flow runner itself never produces or wraps these errors for failures
// raised by units: a unit's error reaches the caller of Flow.Run unchanged.
// AppError is for failures flowkit itself detects (an unknown component in a
// definition, a missing run) and for adapters that translate third-party
// failures into retryable/non-retryable categories.
package errors
