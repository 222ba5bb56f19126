// internal/models/request.go
package models

import (
	"net/url"
	"strings"
)

// Endpoint identifies one of the two backend services.
type Endpoint string

const (
	EndpointKG      Endpoint = "KG"
	EndpointLLMOnly Endpoint = "LLM_ONLY"
)

// Label is the name used in failure reasons.
func (e Endpoint) Label() string {
	if e == EndpointLLMOnly {
		return "LLM"
	}
	return "KG"
}

// Slug is the lower-case name used for metrics and span names.
func (e Endpoint) Slug() string {
	return strings.ToLower(string(e))
}

// ServiceRequest describes one outbound GET.
type ServiceRequest struct {
	Endpoint    Endpoint          `json:"endpoint"`
	BaseURL     string            `json:"baseUrl"`
	QueryParams map[string]string `json:"queryParams"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// URL renders BaseURL with encoded, key-sorted query parameters.
func (r ServiceRequest) URL() string {
	if len(r.QueryParams) == 0 {
		return r.BaseURL
	}
	values := url.Values{}
	for k, v := range r.QueryParams {
		values.Set(k, v)
	}
	return r.BaseURL + "?" + values.Encode()
}
