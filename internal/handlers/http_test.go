package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"medqa-workers/internal/common/logger"
	"medqa-workers/internal/medqa/orchestrator"
	"medqa-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrchestrator struct {
	gotQuery models.Query
	gotMode  models.ViewMode
	deadline bool
	calls    int
	state    orchestrator.State
}

func (f *fakeOrchestrator) RunQuery(ctx context.Context, q models.Query, mode models.ViewMode) orchestrator.Result {
	f.calls++
	_, f.deadline = ctx.Deadline()
	f.gotQuery, f.gotMode = q, mode
	answer := models.Answer{
		LLMOnlyText:         "llm",
		KGAugmentedText:     "kg",
		ExtractedEntities:   []string{"a", "b", "c", "d", "e", "f", "g"},
		ConceptMappings:     []models.ConceptMapping{{Label: "Mapped Concept", Code: "-"}},
		SubgraphSummaryText: "s",
		ReasoningTrace:      []string{"1"},
	}
	f.state = orchestrator.State{Phase: orchestrator.PhaseSettled, QueryID: "q-1", Mode: mode, Answer: &answer, Status: "done"}
	return orchestrator.Result{QueryID: "q-1", Query: q, Mode: mode, Answer: answer, Status: "done", Committed: true}
}

func (f *fakeOrchestrator) Snapshot() orchestrator.State {
	return f.state
}

func newServer(t *testing.T, orch Orchestrator) *http.ServeMux {
	mux := http.NewServeMux()
	NewHTTPHandler(orch, logger.NewTestLogger(t)).Register(mux)
	return mux
}

func post(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery(t *testing.T) {
	orch := &fakeOrchestrator{state: orchestrator.State{Phase: orchestrator.PhaseIdle}}
	mux := newServer(t, orch)

	rec := post(mux, `{"question":"氣喘","queryType":"symptoms","topicLabel":"氣喘 (Asthma)","viewMode":"research"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "q-1", resp.QueryID)
	assert.True(t, resp.Committed)
	assert.Equal(t, "done", resp.Status)
	assert.Equal(t, "llm", resp.View.LLMOnlyText)
	assert.True(t, resp.View.DisclosureOpen)
	assert.NotNil(t, resp.View.Explainability)

	assert.Equal(t, "氣喘有哪些症狀？", orch.gotQuery.Text)
	assert.Equal(t, "Asthma", orch.gotQuery.TopicKey)
	assert.Equal(t, models.FacetSymptoms, orch.gotQuery.Facet)
	assert.Equal(t, models.ViewModeResearch, orch.gotMode)
	assert.False(t, orch.deadline, "query runs under the request context only")
}

func TestHandleQuery_UserModeDefaults(t *testing.T) {
	orch := &fakeOrchestrator{}
	rec := post(newServer(t, orch), `{"question":"  頭痛  "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.View.LLMOnlyText)
	assert.Len(t, resp.View.Entities, 6)
	assert.Nil(t, resp.View.Explainability)
	assert.Equal(t, "頭痛", orch.gotQuery.Text)
	assert.Equal(t, models.FacetFree, orch.gotQuery.Facet)
	assert.Equal(t, models.ViewModeUser, orch.gotMode)
}

func TestHandleQuery_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{question`},
		{"missing question", `{"queryType":"free"}`},
		{"blank question", `{"question":"   "}`},
		{"unknown facet", `{"question":"x","queryType":"causes"}`},
		{"unknown mode", `{"question":"x","viewMode":"admin"}`},
		{"unknown field", `{"question":"x","lang":"en"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &fakeOrchestrator{}
			rec := post(newServer(t, orch), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_QUERY", resp.Code)
			assert.Zero(t, orch.calls, "invalid input must not dispatch")
		})
	}
}

func TestHandleState(t *testing.T) {
	orch := &fakeOrchestrator{state: orchestrator.State{Phase: orchestrator.PhaseIdle}}
	mux := newServer(t, orch)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var idle map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idle))
	assert.Equal(t, "idle", idle["phase"])
	assert.NotContains(t, idle, "view")

	post(mux, `{"question":"頭痛"}`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	var settled StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settled))
	assert.Equal(t, orchestrator.PhaseSettled, settled.Phase)
	require.NotNil(t, settled.View)
	assert.Equal(t, "kg", settled.View.KGAugmentedText)
}

func TestHandleTopics(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(t, &fakeOrchestrator{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/topics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Categories []struct {
			Name   string `json:"name"`
			Topics []struct {
				Label string `json:"label"`
				Key   string `json:"key"`
			} `json:"topics"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Categories, 11)
	assert.Equal(t, "氣喘", resp.Categories[0].Topics[0].Label)
	assert.Equal(t, "Asthma", resp.Categories[0].Topics[0].Key)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(t, &fakeOrchestrator{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/query", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
