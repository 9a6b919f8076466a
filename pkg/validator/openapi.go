package validator

import (
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// OpenAPIValidator checks incoming requests against the published schema
// before they reach the handlers. Routes the schema does not describe pass
// through untouched, so the WebSocket upgrade and /metrics stay unaffected.
type OpenAPIValidator struct {
	doc    *openapi3.T
	router routers.Router
}

func NewOpenAPIValidator(schemaPath string) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("error loading OpenAPI schema %s: %v", schemaPath, err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI schema %s: %v", schemaPath, err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("error building OpenAPI router: %v", err)
	}
	return &OpenAPIValidator{doc: doc, router: router}, nil
}

// Middleware validates request bodies and parameters against the schema
func (v *OpenAPIValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route, pathParams, err := v.router.FindRoute(c.Request)
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "invalid_request",
					"message": fmt.Sprintf("request does not match schema: %v", err),
				},
			})
			return
		}
		c.Next()
	}
}
