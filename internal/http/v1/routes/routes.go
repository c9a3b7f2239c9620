package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"

	"github.com/janisto/greeting-service/internal/http/v1/greeting"
	"github.com/janisto/greeting-service/internal/platform/timeutil"
)

// DocsPath serves the interactive API reference.
const DocsPath = "/api-docs"

// NewAPI mounts a huma API on router with the $schema link transformer
// disabled. Every JSON response media type is mirrored as CBOR in OpenAPI.
func NewAPI(router chi.Router, title, version string) huma.API {
	cfg := huma.DefaultConfig(title, version)
	cfg.DocsPath = DocsPath
	cfg.CreateHooks = nil
	// Wildcard or unsupported Accept values fall back to JSON rather than 406;
	// RFC 9110 section 12.4.1 lets servers disregard Accept.
	api := humachi.New(router, cfg)

	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
		func(_ *huma.OpenAPI, op *huma.Operation) {
			for _, resp := range op.Responses {
				if resp.Content == nil {
					continue
				}
				if jsonContent, ok := resp.Content["application/json"]; ok {
					resp.Content["application/cbor"] = jsonContent
				}
			}
		},
	)
	return api
}

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API, clock timeutil.Clock) {
	greeting.Register(api, clock)
}
