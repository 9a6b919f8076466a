package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	chatapi "ai-companion-chat/backend/chat/api"
	"ai-companion-chat/backend/chat/ws"
	"ai-companion-chat/backend/pkg/config"
	"ai-companion-chat/backend/pkg/di"
	"ai-companion-chat/backend/pkg/errors"
	"ai-companion-chat/backend/pkg/logger"
	"ai-companion-chat/backend/pkg/middleware"
	"ai-companion-chat/backend/shared/observability"
)

// Router owns the HTTP engine and the WebSocket hub
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Hub       *ws.Hub
	Config    *config.Config
}

// New builds the engine with the shared middleware stack and starts the
// WebSocket hub. Appended transcript messages stream to connected clients
// through the hub.
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	limiterOpts := middleware.DefaultRateLimiterOptions()
	limiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	limiterOpts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, limiterOpts)
	engine.Use(rateLimiter.Middleware())

	hub := ws.NewHub(container.Logger)
	container.Orchestrator.SetEmitter(hub.Broadcast)
	go hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Hub:       hub,
		Config:    cfg,
	}
}

// SetupRoutes registers the whole HTTP surface
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware(r.Config.Security.AllowedOrigins))

	sessionAuth := middleware.SessionAuthMiddleware(r.Container.JWTService, r.Logger)
	chatHandler := chatapi.NewChatHandler(r.Container.Orchestrator, r.Container.JWTService, r.Logger)

	v1 := r.Engine.Group("/api/v1")
	chatHandler.RegisterRoutesV1(v1, sessionAuth)

	r.setupHealthRoutes()
	r.Engine.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	// event stream; token arrives as a query parameter during the handshake
	r.Engine.GET("/ws", sessionAuth, func(c *gin.Context) {
		ws.ServeWs(r.Hub, c)
	})
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		allowed := "*"
		for _, o := range allowedOrigins {
			if o == "*" || strings.EqualFold(o, origin) {
				allowed = o
				break
			}
		}
		if allowed == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization, Origin, Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
