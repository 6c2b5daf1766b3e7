package middleware

import (
	"log/slog"
	"time"

	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Logger assigns a trace id to every request and logs method, path, status
// and latency once the handler chain finishes.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := uuid.NewString()
		ctx := ctxmanage.WithTraceID(c.Request.Context(), traceId)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		slog.Info("request completed",
			slog.String(logkey.TraceID, traceId),
			slog.String("Method", c.Request.Method),
			slog.String("Path", c.Request.URL.Path),
			slog.Int("Status", c.Writer.Status()),
			slog.String("Latency", time.Since(start).String()),
		)
	}
}
