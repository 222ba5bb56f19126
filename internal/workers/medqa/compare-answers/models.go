// internal/workers/medqa/compare-answers/models.go
package compareanswers

import (
	"medqa-workers/internal/medqa/presentation"
	"medqa-workers/internal/models"
)

type Input struct {
	Question   string `json:"question"`
	QueryType  string `json:"queryType"`
	TopicLabel string `json:"topicLabel"`
	TopicKey   string `json:"topicKey"`
	ViewMode   string `json:"viewMode"`
}

type Output struct {
	QueryID  string            `json:"queryId"`
	Question string            `json:"question"`
	TopicKey string            `json:"topicKey,omitempty"`
	Answer   models.Answer     `json:"answer"`
	View     presentation.View `json:"view"`
	Status   string            `json:"status"`
	Failed   bool              `json:"failed"`
}

const inputSchema = `{
  "type": "object",
  "required": ["question"],
  "properties": {
    "question":   {"type": "string", "minLength": 1},
    "queryType":  {"type": "string", "enum": ["", "free", "definition", "symptoms", "treatments"]},
    "topicLabel": {"type": "string"},
    "topicKey":   {"type": "string"},
    "viewMode":   {"type": "string", "enum": ["", "user", "research"]}
  }
}`
