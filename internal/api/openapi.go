package api

// buildOpenAPIDoc returns an OpenAPI 3.1 document covering the ops API.
// The surface is fixed, so the document is assembled by hand rather than
// generated.
func buildOpenAPIDoc() map[string]any {
	secured := []any{map[string]any{"BearerAuth": []string{}}}

	paths := map[string]any{
		"/healthz": map[string]any{
			"get": map[string]any{
				"operationId": "healthz",
				"summary":     "Liveness probe",
				"responses": map[string]any{
					"200": map[string]any{"description": "Service is up"},
				},
			},
		},
		"/readyz": map[string]any{
			"get": map[string]any{
				"operationId": "readyz",
				"summary":     "Readiness probe",
				"responses": map[string]any{
					"200": map[string]any{"description": "Document store reachable"},
					"503": map[string]any{"description": "Document store unreachable"},
				},
			},
		},
		"/stats": map[string]any{
			"get": map[string]any{
				"operationId": "stats",
				"summary":     "Pipeline counters and collection sizes",
				"security":    secured,
				"responses": map[string]any{
					"200": map[string]any{"description": "Counters"},
					"401": map[string]any{"description": "Missing or invalid token"},
					"403": map[string]any{"description": "Insufficient scope"},
				},
			},
		},
		"/events": map[string]any{
			"get": map[string]any{
				"operationId": "events",
				"summary":     "Server-sent-events stream of gateway activity",
				"security":    secured,
				"parameters": []any{
					map[string]any{
						"name":        "types",
						"in":          "query",
						"required":    false,
						"description": "Comma-separated event types to include",
						"schema":      map[string]any{"type": "string"},
					},
				},
				"responses": map[string]any{
					"200": map[string]any{"description": "Event stream"},
					"401": map[string]any{"description": "Missing or invalid token"},
					"403": map[string]any{"description": "Insufficient scope"},
				},
			},
		},
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "Hookbridge Ops API",
			"version": "1.0",
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}
