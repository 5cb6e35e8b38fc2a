package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Definition errors ---

// InvalidDefinition creates an AppError for a flow definition that failed validation.
func InvalidDefinition(flow, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidDefinition, Message: fmt.Sprintf("flow %q is invalid: %s", flow, reason),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"flow": flow},
	}
}

// UnknownComponent creates an AppError for a node whose component is not registered.
func UnknownComponent(node, component string, known []string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownComponent, Message: fmt.Sprintf("node %q uses unknown component %q", node, component),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"node":      node,
			"component": component,
			"known":     strings.Join(known, ","),
		},
	}
}

// UnknownNode creates an AppError for a transition that targets an undefined node.
func UnknownNode(from, tag, to string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownNode, Message: fmt.Sprintf("node %q routes tag %q to undefined node %q", from, tag, to),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"from": from, "tag": tag, "to": to},
	}
}

// --- Request errors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// --- Run errors ---

// MaxStepsExceeded creates an AppError for a run that exceeded its step limit.
func MaxStepsExceeded(limit int, lastNode string) *AppError {
	return &AppError{
		Code: ErrCodeMaxStepsExceeded, Message: fmt.Sprintf("run exceeded %d steps", limit),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"limit": limit, "last_node": lastNode},
	}
}

// UnitFailed creates an AppError describing a unit failure for API responses.
// The flow runner never returns this; it is built at the API boundary.
func UnitFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeUnitFailed, Message: "A flow unit failed.",
		HTTPStatus: http.StatusUnprocessableEntity, Cause: cause,
	}
}

// --- External service errors ---

// ExternalServiceError creates a new AppError for an error from an external service.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// RateLimited creates a new AppError for an external service that rate limited the caller.
func RateLimited(service string) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: fmt.Sprintf("The %s service is rate limiting requests.", service),
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates a new AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Unauthorized creates a new AppError for rejected credentials.
func Unauthorized(service string) *AppError {
	return &AppError{
		Code: ErrCodeUnauthorized, Message: fmt.Sprintf("The %s service rejected the credentials.", service),
		HTTPStatus: http.StatusUnauthorized,
		Details:    map[string]any{"service": service},
	}
}

// ServiceUnavailable creates a new AppError for calls refused by an open
// circuit breaker. It is not retryable; the breaker decides when to try again.
func ServiceUnavailable(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s service is temporarily unavailable.", service),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"service": service}, Cause: cause,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
