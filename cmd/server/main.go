package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ai-companion-chat/backend/pkg/config"
	"ai-companion-chat/backend/pkg/di"
	"ai-companion-chat/backend/pkg/logger"
	"ai-companion-chat/backend/pkg/router"
	"ai-companion-chat/backend/shared/observability"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting companion chat server", "env", cfg.Server.Env)

	shutdownTracing := observability.SetupTracing("companion-chat")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics()

	container, err := di.New(cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	r := router.New(container)

	schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH")
	if schemaPath == "" {
		schemaPath = "api/openapi.yaml"
	}
	r.AddOpenAPIValidation(schemaPath)

	r.SetupRoutes()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	log.Info("Server exited")
}
