package middleware

import (
	"sync"
	"time"

	"ai-companion-chat/backend/pkg/errors"
	"ai-companion-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterOptions configures the rate limiter
type RateLimiterOptions struct {
	// Limit defines requests per second
	Limit rate.Limit
	// Burst defines maximum burst size allowed
	Burst int
	// ExpiryDuration defines how long to keep client state in memory
	ExpiryDuration time.Duration
	// KeyFunc extracts the limiting key from a request (e.g. IP, session ID)
	KeyFunc func(*gin.Context) string
}

// DefaultRateLimiterOptions returns sensible defaults
func DefaultRateLimiterOptions() RateLimiterOptions {
	return RateLimiterOptions{
		Limit:          5,
		Burst:          10,
		ExpiryDuration: time.Hour,
		KeyFunc: func(c *gin.Context) string {
			// Prefer the chat session when one is resolved so one browser
			// cannot starve another behind the same NAT
			if sessionID := c.GetString("sessionId"); sessionID != "" {
				return sessionID
			}
			return c.ClientIP()
		},
	}
}

// client represents a rate limiter client
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements rate limiting middleware for Gin
type RateLimiter struct {
	mu      sync.Mutex
	options RateLimiterOptions
	clients map[string]*client
	logger  *logger.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(logger *logger.Logger, options ...RateLimiterOptions) *RateLimiter {
	opts := DefaultRateLimiterOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &RateLimiter{
		options: opts,
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Middleware returns a Gin middleware for rate limiting
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	go r.cleanup()

	return func(c *gin.Context) {
		key := r.options.KeyFunc(c)
		limiter := r.getLimiter(key)

		if !limiter.Allow() {
			r.logger.Warn("Rate limit exceeded",
				"client", key,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			c.Error(errors.NewBadRequestError("RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later."))
			c.Header("Retry-After", "1")
			c.Abort()
			return
		}

		c.Next()
	}
}

// getLimiter returns a rate limiter for the given key
func (r *RateLimiter) getLimiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.clients[key]
	if !exists {
		limiter := rate.NewLimiter(r.options.Limit, r.options.Burst)
		r.clients[key] = &client{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup removes old entries from the clients map
func (r *RateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		r.mu.Lock()
		for k, v := range r.clients {
			if time.Since(v.lastSeen) > r.options.ExpiryDuration {
				delete(r.clients, k)
			}
		}
		r.mu.Unlock()
	}
}
