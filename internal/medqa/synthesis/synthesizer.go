// Package synthesis folds the two endpoint outcomes into one fully populated Answer.
package synthesis

import (
	"fmt"
	"strings"

	"medqa-workers/internal/common/errors"
	"medqa-workers/internal/medqa/dispatch"
	"medqa-workers/internal/models"
)

type Synthesizer struct {
	msg Messages
}

func New(msg Messages) *Synthesizer {
	return &Synthesizer{msg: msg}
}

// Messages exposes the catalog, e.g. for status strings.
func (s *Synthesizer) Messages() Messages {
	return s.msg
}

// FirstFailure returns the KG failure if any, else the LLM failure, else nil.
func FirstFailure(kg dispatch.Outcome[models.KGPayload], llm dispatch.Outcome[models.LLMPayload]) *errors.StandardError {
	if kg.Failure != nil {
		return kg.Failure
	}
	return llm.Failure
}

// Synthesize never fails. Any failed endpoint yields the sentinel Answer; there is no partial shape.
func (s *Synthesizer) Synthesize(q models.Query, kg dispatch.Outcome[models.KGPayload], llm dispatch.Outcome[models.LLMPayload]) models.Answer {
	if failure := FirstFailure(kg, llm); failure != nil {
		return s.failed(failure.Message)
	}

	kgPayload := kg.Payload
	first := kgPayload.FirstResult()

	facet := s.msg.Unmapped
	bankID := ""
	if kgPayload.MappedTo != nil {
		if qtype := kgPayload.MappedTo.QType.String(); qtype != "" {
			facet = qtype
		}
		bankID = kgPayload.MappedTo.BankID.String()
	}

	concept := bankID
	if concept == "" {
		concept = first.ConceptID.String()
	}
	if concept == "" {
		concept = s.msg.Unmapped
	}

	entities := make([]string, len(kgPayload.ExtractedTerms))
	copy(entities, kgPayload.ExtractedTerms)

	subgraph := strings.Join(first.SubgraphSummary, s.msg.SubgraphSeparator)
	if subgraph == "" {
		subgraph = s.msg.NoSubgraph
	}

	return models.Answer{
		LLMOnlyText:       orDefault(llm.Payload.FirstAnswer(), s.msg.NoData),
		KGAugmentedText:   orDefault(first.Answer, s.msg.NoData),
		ExtractedEntities: entities,
		ConceptMappings: []models.ConceptMapping{
			{Label: s.msg.MappedConceptLabel, Code: concept},
			{Label: s.msg.FacetLabel, Code: facet},
		},
		SubgraphSummaryText: subgraph,
		ReasoningTrace: []string{
			fmt.Sprintf(s.msg.TraceQuestion, q.Text),
			fmt.Sprintf(s.msg.TraceFacet, facet),
			fmt.Sprintf(s.msg.TraceConcept, concept),
			fmt.Sprintf(s.msg.TraceSubgraph, len(first.SubgraphSummary)),
			fmt.Sprintf(s.msg.TraceFallback, s.fallback(kgPayload, first)),
			s.msg.TraceCompare,
		},
	}
}

// fallback prefers the first result's note over the first string-valued debug fallback.
func (s *Synthesizer) fallback(p models.KGPayload, first models.KGResult) string {
	if first.Note != "" {
		return first.Note
	}
	if fb, ok := p.DebugFallback(); ok && fb != "" {
		return fb
	}
	return s.msg.None
}

func (s *Synthesizer) failed(reason string) models.Answer {
	text := fmt.Sprintf(s.msg.FailureFormat, reason)
	trace := make([]string, len(s.msg.FailureTrace))
	copy(trace, s.msg.FailureTrace)

	return models.Answer{
		LLMOnlyText:         text,
		KGAugmentedText:     text,
		ExtractedEntities:   []string{},
		ConceptMappings:     []models.ConceptMapping{},
		SubgraphSummaryText: s.msg.FailureNotice,
		ReasoningTrace:      trace,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
