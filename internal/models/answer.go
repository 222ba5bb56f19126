// internal/models/answer.go
package models

// Answer is the synthesized comparison of both endpoints. Slices are never nil and
// strings hold sentinel text on failure, so consumers never branch on absence.
type Answer struct {
	LLMOnlyText         string           `json:"llmOnlyText"`
	KGAugmentedText     string           `json:"kgAugmentedText"`
	ExtractedEntities   []string         `json:"extractedEntities"`
	ConceptMappings     []ConceptMapping `json:"conceptMappings"`
	SubgraphSummaryText string           `json:"subgraphSummaryText"`
	ReasoningTrace      []string         `json:"reasoningTrace"`
}

type ConceptMapping struct {
	Label string `json:"label"`
	Code  string `json:"code"`
}
