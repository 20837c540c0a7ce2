// Package observability carries the request-scoped logger and the in-process
// metrics for engine operations.
package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	LogFieldRequestID  = "request_id"
	LogFieldUserID     = "user_id"
	LogFieldOperation  = "operation"
	LogFieldDuration   = "duration_ms"
	LogFieldMessageLen = "message_length"
	LogFieldErrorCode  = "error_code"
)

// RequestContext ties one engine operation (a chat turn, an insight fetch) to
// a request ID and a pre-tagged logger.
type RequestContext struct {
	RequestID string
	UserID    int32
	Operation string
	StartTime time.Time
	Logger    *slog.Logger
}

func NewRequestContext(logger *slog.Logger, operation string, userID int32) *RequestContext {
	if logger == nil {
		logger = slog.Default()
	}
	requestID := uuid.NewString()
	return &RequestContext{
		RequestID: requestID,
		UserID:    userID,
		Operation: operation,
		StartTime: time.Now(),
		Logger: logger.With(
			LogFieldRequestID, requestID,
			LogFieldUserID, userID,
			LogFieldOperation, operation,
		),
	}
}

// Elapsed returns the milliseconds since the request started.
func (rc *RequestContext) Elapsed() int64 {
	return time.Since(rc.StartTime).Milliseconds()
}

// Done logs the terminal line for the operation and feeds the metrics.
func (rc *RequestContext) Done(err error) {
	duration := time.Since(rc.StartTime)
	GlobalMetrics().RecordOperation(rc.Operation, duration, err == nil)
	if err != nil {
		rc.Logger.Warn("operation failed", LogFieldDuration, duration.Milliseconds(), "err", err)
		return
	}
	rc.Logger.Info("operation done", LogFieldDuration, duration.Milliseconds())
}

type requestContextKey struct{}

// WithRequestContext stores rc on the context.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the request context, or a throwaway one when absent so
// callers never nil-check.
func FromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestContextKey{}).(*RequestContext); ok {
		return rc
	}
	return NewRequestContext(slog.Default(), "unknown", 0)
}
