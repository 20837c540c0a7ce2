// Package errors defines the structured error taxonomy for engine
// operations. Handlers map codes to HTTP statuses; internal callers branch on
// codes instead of string-matching messages.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode identifies a failure domain.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates bad input from the caller.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates a missing person, message, or pattern.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeRateLimitExceeded indicates the caller is over quota.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeAIUnavailable indicates the completion or embedding provider
	// failed or is not configured.
	ErrCodeAIUnavailable ErrorCode = "AI_UNAVAILABLE"
	// ErrCodeStoreUnavailable indicates the database is unreachable.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the caller went away.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal is the catch-all for unexpected failures.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// EngineError is a structured error carrying a code and optional cause.
type EngineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the code to a response status.
func (e *EngineError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeAIUnavailable, ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeContextCanceled:
		return 499
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func InvalidArgument(msg string) *EngineError {
	return &EngineError{Code: ErrCodeInvalidArgument, Message: msg}
}

func NotFound(msg string) *EngineError {
	return &EngineError{Code: ErrCodeNotFound, Message: msg}
}

func RateLimitExceeded(msg string) *EngineError {
	return &EngineError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

func AIUnavailable(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeAIUnavailable, Message: msg, Cause: cause}
}

func StoreUnavailable(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeStoreUnavailable, Message: msg, Cause: cause}
}

func ContextCanceled(cause error) *EngineError {
	return &EngineError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

func Timeout(msg string) *EngineError {
	return &EngineError{Code: ErrCodeTimeout, Message: msg}
}

// Wrap attaches a code to an existing error.
func Wrap(cause error, code ErrorCode, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	if ee, ok := err.(*EngineError); ok {
		return ee.Code == code
	}
	return false
}

// CodeOf extracts the code, falling back to defaultCode for plain errors.
func CodeOf(err error, defaultCode ErrorCode) ErrorCode {
	if ee, ok := err.(*EngineError); ok {
		return ee.Code
	}
	return defaultCode
}
