package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Key types for context values
type contextKey string

const (
	// RequestIDKey is the key for request ID values in contexts
	RequestIDKey contextKey = "requestID"
	// SessionIDKey is the key for chat session ID values in contexts
	SessionIDKey contextKey = "sessionID"
)

// RequestIDMiddleware adds a unique request ID to each request
// and sets it in both the context and response headers
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(c.Request.Context(), RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Set("requestID", requestID)

		c.Next()
	}
}

// WithRequestContext adds standard context values to a context for downstream operations
func WithRequestContext(parent context.Context, c *gin.Context) context.Context {
	ctx := parent

	if requestID, exists := c.Get("requestID"); exists {
		ctx = context.WithValue(ctx, RequestIDKey, requestID)
	}
	if sessionID := c.GetString("sessionId"); sessionID != "" {
		ctx = context.WithValue(ctx, SessionIDKey, sessionID)
	}

	return ctx
}

// GetRequestID extracts the request ID from a context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetSessionID extracts the chat session ID from a context
func GetSessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}
