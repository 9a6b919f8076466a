package router

import (
	"os"
	"path/filepath"

	"ai-companion-chat/backend/pkg/validator"
)

// AddOpenAPIValidation validates incoming API requests against the schema
// and serves the schema itself under /api/docs. Missing schema files only
// log a warning so development setups keep working.
func (r *Router) AddOpenAPIValidation(schemaPath string) {
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		r.Logger.Warn("OpenAPI schema not found, request validation disabled", "path", schemaPath)
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.LogError(err, "failed to initialize OpenAPI validator")
		return
	}
	r.Engine.Use(v.Middleware())

	r.Engine.Static("/api/docs", filepath.Dir(schemaPath))
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath)
}
