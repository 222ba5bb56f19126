// internal/models/query.go
package models

import (
	"fmt"
	"strings"

	"medqa-workers/internal/common/errors"
)

// Facet is the question type sent to the KG endpoint as qtype.
type Facet string

const (
	FacetFree       Facet = "free"
	FacetDefinition Facet = "definition"
	FacetSymptoms   Facet = "symptoms"
	FacetTreatments Facet = "treatments"
)

func (f Facet) Valid() bool {
	switch f {
	case FacetFree, FacetDefinition, FacetSymptoms, FacetTreatments:
		return true
	}
	return false
}

// ViewMode selects how much of an Answer is exposed. It is also forwarded to the KG endpoint.
type ViewMode string

const (
	ViewModeUser     ViewMode = "user"
	ViewModeResearch ViewMode = "research"
)

// ParseViewMode accepts "user" or "research". Empty input means user.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.TrimSpace(s)) {
	case "", ViewModeUser:
		return ViewModeUser, nil
	case ViewModeResearch:
		return ViewModeResearch, nil
	}
	return "", errors.NewInvalidQueryError(fmt.Sprintf("unknown view mode %q", s))
}

// Query is one submission. It is a value and is never mutated after dispatch.
type Query struct {
	Text     string `json:"text"`
	Facet    Facet  `json:"facet"`
	TopicKey string `json:"topicKey,omitempty"`
}

// NewQuery trims and validates its inputs. An empty facet defaults to free.
func NewQuery(text string, facet Facet, topicKey string) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, errors.NewInvalidQueryError("question text is empty")
	}
	if facet == "" {
		facet = FacetFree
	}
	if !facet.Valid() {
		return Query{}, errors.NewInvalidQueryError(fmt.Sprintf("unknown query type %q", facet))
	}
	return Query{
		Text:     text,
		Facet:    facet,
		TopicKey: strings.TrimSpace(topicKey),
	}, nil
}
