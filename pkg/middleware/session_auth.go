package middleware

import (
	"strings"

	"ai-companion-chat/backend/pkg/errors"
	"ai-companion-chat/backend/pkg/jwt"
	"ai-companion-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SessionAuthMiddleware validates the session token and stores the resolved
// session ID in the request context. Chat endpoints require it; the session
// creation endpoint does not.
func SessionAuthMiddleware(jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Error(errors.NewUnauthorizedError("MISSING_TOKEN", "Session token is required"))
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			code := "INVALID_TOKEN"
			if err == jwt.ErrExpiredToken {
				code = "EXPIRED_TOKEN"
			}
			log.Warn("Session token rejected", "reason", err.Error(), "path", c.Request.URL.Path)
			c.Error(errors.NewUnauthorizedError(code, "Session token is invalid or expired"))
			c.Abort()
			return
		}

		c.Set("sessionId", claims.SessionID)
		c.Next()
	}
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the query string for the WebSocket handshake (browsers cannot set
// headers on WebSocket connections)
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// SessionID returns the session ID resolved by SessionAuthMiddleware
func SessionID(c *gin.Context) string {
	return c.GetString("sessionId")
}
