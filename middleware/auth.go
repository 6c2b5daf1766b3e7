package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/auth"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// Authentication verifies the Bearer token and stores the claims in the
// request context for handlers to read.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		authHeader := c.Request.Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			slog.Error("missing or malformed authorization header", slog.String(logkey.TraceID, traceId))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access token required", "code": "TOKEN_REQUIRED"})
			return
		}

		claims, err := m.keys.ParseToken(parts[1])
		if err != nil {
			slog.Error("token verification failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token", "code": "INVALID_TOKEN"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authorize wraps a handler so it only runs when the authenticated user holds
// one of the given roles.
func (m *Mid) Authorize(next gin.HandlerFunc, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
		if !ok {
			slog.Error("claims not found in context", slog.String(logkey.TraceID, traceId))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized", "code": "UNAUTHORIZED"})
			return
		}

		for _, role := range roles {
			// an admin can do anything a user can
			if claims.Role == role || claims.Role == auth.RoleAdmin {
				next(c)
				return
			}
		}

		slog.Error("role not allowed", slog.String(logkey.TraceID, traceId), slog.String("Role", claims.Role))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied", "code": "FORBIDDEN"})
	}
}
