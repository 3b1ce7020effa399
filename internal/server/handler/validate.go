package handler

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/ajanottaja/identity-bridge/internal/logger"
	"github.com/ajanottaja/identity-bridge/internal/utils"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"go.uber.org/zap"
)

//go:embed openapi.yaml
var hooksDocument []byte

// Validator checks hook requests against the embedded OpenAPI document.
type Validator struct {
	router routers.Router
}

// NewValidator loads and validates the embedded document.
func NewValidator() (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(hooksDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load hooks document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid hooks document: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build hooks router: %w", err)
	}
	return &Validator{router: router}, nil
}

// Middleware rejects requests whose body does not match the documented
// event shape. Requests for undocumented routes pass through.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			logger.FromContext(r.Context()).Info("hook request failed validation",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			utils.WriteError(w, "invalid_request", describe(err), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// describe trims kin-openapi's verbose errors to their reason.
func describe(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		var schemaErr *openapi3.SchemaError
		if errors.As(reqErr.Err, &schemaErr) {
			return fmt.Sprintf("request body: %s", schemaErr.Reason)
		}
		if reqErr.Reason != "" {
			return reqErr.Reason
		}
		if reqErr.Err != nil {
			return reqErr.Err.Error()
		}
	}
	return err.Error()
}
