// Package presentation projects an Answer onto what a renderer may show for a view mode.
package presentation

import "medqa-workers/internal/models"

// UserEntityLimit is how many entities user mode shows.
const UserEntityLimit = 6

// View is the renderable projection of an Answer.
type View struct {
	Mode            models.ViewMode `json:"mode"`
	KGAugmentedText string          `json:"kgAugmentedText"`
	LLMOnlyText     string          `json:"llmOnlyText,omitempty"`
	Entities        []string        `json:"entities"`
	Explainability  *Explainability `json:"explainability,omitempty"`
	DisclosureOpen  bool            `json:"disclosureOpen"`
}

type Explainability struct {
	ConceptMappings     []models.ConceptMapping `json:"conceptMappings"`
	SubgraphSummaryText string                  `json:"subgraphSummaryText"`
	ReasoningTrace      []string                `json:"reasoningTrace"`
}

// Project never mutates a.
func Project(a models.Answer, mode models.ViewMode, disclosure Disclosure) View {
	if mode != models.ViewModeResearch {
		n := len(a.ExtractedEntities)
		if n > UserEntityLimit {
			n = UserEntityLimit
		}
		entities := make([]string, n)
		copy(entities, a.ExtractedEntities[:n])
		return View{
			Mode:            models.ViewModeUser,
			KGAugmentedText: a.KGAugmentedText,
			Entities:        entities,
		}
	}

	entities := make([]string, len(a.ExtractedEntities))
	copy(entities, a.ExtractedEntities)
	view := View{
		Mode:            models.ViewModeResearch,
		KGAugmentedText: a.KGAugmentedText,
		LLMOnlyText:     a.LLMOnlyText,
		Entities:        entities,
		DisclosureOpen:  disclosure.Open(),
	}
	if disclosure.Open() {
		view.Explainability = &Explainability{
			ConceptMappings:     append([]models.ConceptMapping{}, a.ConceptMappings...),
			SubgraphSummaryText: a.SubgraphSummaryText,
			ReasoningTrace:      append([]string{}, a.ReasoningTrace...),
		}
	}
	return view
}
