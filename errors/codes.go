package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Definition errors
const (
	// ErrCodeInvalidDefinition indicates a flow definition failed validation.
	ErrCodeInvalidDefinition ErrorCode = "INVALID_DEFINITION"
	// ErrCodeUnknownComponent indicates a definition references an unregistered component.
	ErrCodeUnknownComponent ErrorCode = "UNKNOWN_COMPONENT"
	// ErrCodeUnknownNode indicates a transition targets a node that is not defined.
	ErrCodeUnknownNode ErrorCode = "UNKNOWN_NODE"
)

// Request errors
const (
	// ErrCodeNotFound indicates the requested flow or run was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Run errors
const (
	// ErrCodeMaxStepsExceeded indicates a run hit its configured step limit.
	ErrCodeMaxStepsExceeded ErrorCode = "MAX_STEPS_EXCEEDED"
	// ErrCodeUnitFailed indicates a unit failed; the cause carries the unit's own error.
	ErrCodeUnitFailed ErrorCode = "UNIT_FAILED"
)

// External service errors (mostly retryable)
const (
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeRateLimited indicates the external service rate limited the caller.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeUnauthorized indicates the external service rejected the credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeServiceUnavailable indicates calls are being refused locally
	// because the external service keeps failing.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrCodeInternal indicates an unexpected internal error.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeExternalService: true,
	ErrCodeRateLimited:     true,
	ErrCodeTimeout:         true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
