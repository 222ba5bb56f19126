package request

import (
	"net/url"
	"testing"

	"medqa-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name        string
		query       models.Query
		mode        models.ViewMode
		apiBase     string
		apiKey      string
		wantKG      map[string]string
		wantHeaders map[string]string
	}{
		{
			name:        "free query without topic",
			query:       models.Query{Text: "頭痛", Facet: models.FacetFree},
			mode:        models.ViewModeUser,
			apiBase:     "http://api.local",
			wantKG:      map[string]string{"question": "頭痛", "mode": "user"},
			wantHeaders: map[string]string{},
		},
		{
			name:        "topic and facet with key",
			query:       models.Query{Text: "什麼是氣喘？", Facet: models.FacetDefinition, TopicKey: "Asthma"},
			mode:        models.ViewModeResearch,
			apiBase:     "http://api.local///",
			apiKey:      " secret ",
			wantKG:      map[string]string{"question": "什麼是氣喘？", "mode": "research", "topic_key": "Asthma", "qtype": "definition"},
			wantHeaders: map[string]string{"X-API-KEY": "secret"},
		},
		{
			name:        "blank key sends no header",
			query:       models.Query{Text: "q", Facet: models.FacetSymptoms},
			mode:        models.ViewModeUser,
			apiBase:     "https://api.local/base/",
			apiKey:      "   ",
			wantKG:      map[string]string{"question": "q", "mode": "user", "qtype": "symptoms"},
			wantHeaders: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := Build(tt.query, tt.mode, tt.apiBase, tt.apiKey)

			assert.Equal(t, models.EndpointKG, pair.KG.Endpoint)
			assert.Equal(t, models.EndpointLLMOnly, pair.LLM.Endpoint)
			assert.Equal(t, tt.wantKG, pair.KG.QueryParams)
			assert.Equal(t, map[string]string{"question": tt.query.Text}, pair.LLM.QueryParams)
			assert.Equal(t, tt.wantHeaders, pair.KG.Headers)
			assert.Equal(t, tt.wantHeaders, pair.LLM.Headers)
		})
	}
}

func TestBuild_URLs(t *testing.T) {
	pair := Build(models.Query{Text: "頭痛", Facet: models.FacetFree}, models.ViewModeUser, "http://api.local/", "")

	kg, err := url.Parse(pair.KG.URL())
	require.NoError(t, err)
	assert.Equal(t, "/demo/search", kg.Path)
	assert.Equal(t, "頭痛", kg.Query().Get("question"))
	assert.False(t, kg.Query().Has("topic_key"))
	assert.False(t, kg.Query().Has("qtype"))

	llm, err := url.Parse(pair.LLM.URL())
	require.NoError(t, err)
	assert.Equal(t, "http://api.local/llm_only", llm.Scheme+"://"+llm.Host+llm.Path)
	assert.Equal(t, url.Values{"question": {"頭痛"}}, llm.Query())
}

func TestBuild_Deterministic(t *testing.T) {
	q := models.Query{Text: "糖尿病有哪些症狀？", Facet: models.FacetSymptoms, TopicKey: "Diabetes"}
	a := Build(q, models.ViewModeResearch, "http://api.local", "k")
	b := Build(q, models.ViewModeResearch, "http://api.local", "k")
	assert.Equal(t, a, b)
	assert.Equal(t, a.KG.URL(), b.KG.URL())
}
