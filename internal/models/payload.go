// internal/models/payload.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OptionalText is a loosely typed identifier: the backend may send a string, a number or null.
// Numbers keep their JSON spelling. Null, absent and numeric zero all leave it empty.
type OptionalText string

func (t *OptionalText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = OptionalText(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		if f, err := n.Float64(); err == nil && f == 0 {
			*t = ""
			return nil
		}
		*t = OptionalText(n.String())
		return nil
	}
	return fmt.Errorf("expected string, number or null, got %s", data)
}

func (t OptionalText) String() string { return string(t) }

// KGPayload is the /demo/search response. Every field is optional.
type KGPayload struct {
	ExtractedTerms []string         `json:"extracted_terms,omitempty"`
	Debug          []map[string]any `json:"debug,omitempty"`
	MappedTo       *MappedTo        `json:"mapped_to,omitempty"`
	Results        []KGResult       `json:"results,omitempty"`
}

type MappedTo struct {
	BankID   OptionalText `json:"bank_id,omitempty"`
	QType    OptionalText `json:"qtype,omitempty"`
	Question OptionalText `json:"question,omitempty"`
}

type KGResult struct {
	Answer          string       `json:"answer,omitempty"`
	SubgraphSummary []string     `json:"subgraph_summary,omitempty"`
	Note            string       `json:"note,omitempty"`
	ConceptID       OptionalText `json:"conceptId,omitempty"`
}

// FirstResult returns results[0] or a zero value.
func (p KGPayload) FirstResult() KGResult {
	if len(p.Results) == 0 {
		return KGResult{}
	}
	return p.Results[0]
}

// DebugFallback returns the first debug entry's fallback when it is a string.
func (p KGPayload) DebugFallback() (string, bool) {
	for _, entry := range p.Debug {
		if fb, ok := entry["fallback"].(string); ok {
			return fb, true
		}
	}
	return "", false
}

// LLMPayload is the /llm_only response.
type LLMPayload struct {
	Results []LLMResult `json:"results,omitempty"`
}

type LLMResult struct {
	Answer string `json:"answer,omitempty"`
}

func (p LLMPayload) FirstAnswer() string {
	if len(p.Results) == 0 {
		return ""
	}
	return p.Results[0].Answer
}
