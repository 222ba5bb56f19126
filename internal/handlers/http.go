// internal/handlers/http.go
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"medqa-workers/internal/common/errors"
	"medqa-workers/internal/common/validation"
	"medqa-workers/internal/medqa/orchestrator"
	"medqa-workers/internal/medqa/presentation"
	"medqa-workers/internal/medqa/topic"
	"medqa-workers/internal/models"
)

const maxRequestBytes = 64 << 10

var querySchema = validation.MustCompileSchema(`{
  "type": "object",
  "required": ["question"],
  "properties": {
    "question":   {"type": "string", "minLength": 1},
    "queryType":  {"type": "string", "enum": ["", "free", "definition", "symptoms", "treatments"]},
    "topicLabel": {"type": "string"},
    "topicKey":   {"type": "string"},
    "viewMode":   {"type": "string", "enum": ["", "user", "research"]}
  },
  "additionalProperties": false
}`)

// Orchestrator is satisfied by *orchestrator.Orchestrator.
type Orchestrator interface {
	RunQuery(ctx context.Context, q models.Query, mode models.ViewMode) orchestrator.Result
	Snapshot() orchestrator.State
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

type QueryRequest struct {
	Question   string `json:"question"`
	QueryType  string `json:"queryType"`
	TopicLabel string `json:"topicLabel"`
	TopicKey   string `json:"topicKey"`
	ViewMode   string `json:"viewMode"`
}

type QueryResponse struct {
	QueryID   string            `json:"queryId"`
	Committed bool              `json:"committed"`
	Status    string            `json:"status"`
	Failed    bool              `json:"failed"`
	View      presentation.View `json:"view"`
}

type StateResponse struct {
	orchestrator.State
	View *presentation.View `json:"view,omitempty"`
}

type ErrorResponse struct {
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Details string                       `json:"details,omitempty"`
	Errors  []validation.ValidationError `json:"errors,omitempty"`
}

type HTTPHandler struct {
	orch   Orchestrator
	logger Logger
}

// NewHTTPHandler serves the query API. Upstream deadlines belong to the transport.
func NewHTTPHandler(orch Orchestrator, logger Logger) *HTTPHandler {
	return &HTTPHandler{orch: orch, logger: logger}
}

// Register mounts the API routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.handleQuery)
	mux.HandleFunc("GET /api/state", h.handleState)
	mux.HandleFunc("GET /api/topics", h.handleTopics)
}

func (h *HTTPHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		h.writeError(w, errors.NewInvalidQueryError(err.Error()), nil)
		return
	}

	result, err := querySchema.ValidateBytes(body)
	if err != nil {
		h.writeError(w, errors.NewInvalidQueryError("request body is not JSON"), nil)
		return
	}
	if !result.Valid {
		h.writeError(w, errors.NewInvalidQueryError(result.Summary()), result.Errors)
		return
	}

	var req QueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, errors.NewInvalidQueryError(err.Error()), nil)
		return
	}

	q, mode, err := toQuery(req)
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	res := h.orch.RunQuery(r.Context(), q, mode)
	writeJSON(w, http.StatusOK, QueryResponse{
		QueryID:   res.QueryID,
		Committed: res.Committed,
		Status:    res.Status,
		Failed:    res.Failed,
		View:      presentation.Project(res.Answer, mode, presentation.NewDisclosure(mode)),
	})
}

func (h *HTTPHandler) handleState(w http.ResponseWriter, r *http.Request) {
	state := h.orch.Snapshot()
	resp := StateResponse{State: state}
	if state.Answer != nil {
		view := presentation.Project(*state.Answer, state.Mode, presentation.NewDisclosure(state.Mode))
		resp.View = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": topic.Topics()})
}

func toQuery(req QueryRequest) (models.Query, models.ViewMode, error) {
	mode, err := models.ParseViewMode(req.ViewMode)
	if err != nil {
		return models.Query{}, "", err
	}

	topicKey := req.TopicKey
	if topicKey == "" && req.TopicLabel != "" {
		topicKey, _ = topic.Resolve(req.TopicLabel)
	}

	facet := models.Facet(req.QueryType)
	q, err := models.NewQuery(topic.ComposeQuestion(req.Question, facet, topicKey), facet, topicKey)
	if err != nil {
		return models.Query{}, "", err
	}
	return q, mode, nil
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error, fieldErrs []validation.ValidationError) {
	stdErr := errors.Normalize(err)
	status := http.StatusBadRequest
	if stdErr.Code != errors.ErrCodeInvalidQuery {
		status = http.StatusInternalServerError
		h.logger.Error("request failed", map[string]interface{}{"error": err.Error()})
	}
	writeJSON(w, status, ErrorResponse{
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
		Errors:  fieldErrs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
