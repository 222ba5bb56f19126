// Package request derives the two outbound request descriptors for a query.
package request

import (
	"strings"

	"medqa-workers/internal/models"
)

const (
	KGPath      = "/demo/search"
	LLMOnlyPath = "/llm_only"

	apiKeyHeader = "X-API-KEY"
)

// Pair holds one request per endpoint for the same query.
type Pair struct {
	KG  models.ServiceRequest
	LLM models.ServiceRequest
}

// Build never fails. apiBase is expected to be validated at start-up; trailing
// slashes are stripped here as well.
func Build(q models.Query, mode models.ViewMode, apiBase, apiKey string) Pair {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")

	kgParams := map[string]string{
		"question": q.Text,
		"mode":     string(mode),
	}
	if q.TopicKey != "" {
		kgParams["topic_key"] = q.TopicKey
	}
	if q.Facet != "" && q.Facet != models.FacetFree {
		kgParams["qtype"] = string(q.Facet)
	}

	return Pair{
		KG: models.ServiceRequest{
			Endpoint:    models.EndpointKG,
			BaseURL:     base + KGPath,
			QueryParams: kgParams,
			Headers:     authHeaders(apiKey),
		},
		LLM: models.ServiceRequest{
			Endpoint:    models.EndpointLLMOnly,
			BaseURL:     base + LLMOnlyPath,
			QueryParams: map[string]string{"question": q.Text},
			Headers:     authHeaders(apiKey),
		},
	}
}

func authHeaders(apiKey string) map[string]string {
	headers := map[string]string{}
	if key := strings.TrimSpace(apiKey); key != "" {
		headers[apiKeyHeader] = key
	}
	return headers
}
