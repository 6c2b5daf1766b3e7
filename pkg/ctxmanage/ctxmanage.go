// Package ctxmanage carries request scoped values, currently only the trace id
// the logging middleware assigns to every request.
package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
)

type key int

const traceIDKey key = 1

// WithTraceID returns a context that carries the given trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace id from ctx, or "unknown" if none was set.
func TraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return "unknown"
	}
	return traceID
}

// GetTraceIdOfRequest is a convenience for gin handlers.
func GetTraceIdOfRequest(c *gin.Context) string {
	return TraceID(c.Request.Context())
}
