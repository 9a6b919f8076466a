package router

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// setupHealthRoutes registers the liveness endpoint
func (r *Router) setupHealthRoutes() {
	healthHandler := func(c *gin.Context) {
		dbStatus := "not configured"
		if r.Container.DB != nil {
			dbStatus = "ok"
			if err := r.Container.DB.Exec("SELECT 1").Error; err != nil {
				dbStatus = err.Error()
				r.Logger.Error("Database health check failed", "error", err)
			}
		}

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		c.JSON(200, gin.H{
			"status":         "ok",
			"env":            r.Config.Server.Env,
			"uptime_seconds": int(time.Since(startTime).Seconds()),
			"timestamp":      time.Now().Format(time.RFC3339),
			"components": gin.H{
				"database": dbStatus,
				"websocket": gin.H{
					"status":             "ok",
					"active_connections": r.Hub.ActiveConnections(),
				},
			},
			"memory": gin.H{
				"alloc_mb":  memStats.Alloc / 1024 / 1024,
				"sys_mb":    memStats.Sys / 1024 / 1024,
				"gc_cycles": memStats.NumGC,
			},
		})
	}

	r.Engine.GET("/health", healthHandler)
	r.Engine.GET("/api/health", healthHandler)
}
