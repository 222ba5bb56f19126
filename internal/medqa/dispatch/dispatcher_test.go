package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medqa-workers/internal/common/errors"
	httpclient "medqa-workers/internal/common/http"
	"medqa-workers/internal/common/logger"
	"medqa-workers/internal/medqa/request"
	"medqa-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const kgBody = `{
  "extracted_terms": ["氣喘", "asthma"],
  "mapped_to": {"bank_id": "195967001", "qtype": "definition"},
  "results": [{"answer": "氣喘是一種慢性呼吸道疾病。", "subgraph_summary": ["Asthma -> ISA -> Disease"]}]
}`

const llmBody = `{"results": [{"answer": "氣喘是呼吸道發炎。"}]}`

type backend struct {
	kgStatus  int
	kgBody    string
	llmStatus int
	llmBody   string
	kgHits    atomic.Int32
	llmHits   atomic.Int32
	lastKey   atomic.Value
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/demo/search", func(w http.ResponseWriter, r *http.Request) {
		b.kgHits.Add(1)
		b.lastKey.Store(r.Header.Get("X-API-KEY"))
		w.WriteHeader(b.kgStatus)
		_, _ = w.Write([]byte(b.kgBody))
	})
	mux.HandleFunc("/llm_only", func(w http.ResponseWriter, r *http.Request) {
		b.llmHits.Add(1)
		w.WriteHeader(b.llmStatus)
		_, _ = w.Write([]byte(b.llmBody))
	})
	return mux
}

func newDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	return New(httpclient.NewClient(5*time.Second), logger.NewTestLogger(t), opts...)
}

func pairFor(base string) request.Pair {
	q := models.Query{Text: "什麼是氣喘？", Facet: models.FacetDefinition, TopicKey: "Asthma"}
	return request.Build(q, models.ViewModeResearch, base, "secret")
}

func TestDispatch_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		backend    *backend
		wantKGOK   bool
		wantLLMOK  bool
		wantKGErr  string
		wantLLMErr string
		wantCode   errors.ErrorCode
	}{
		{
			name:      "both succeed",
			backend:   &backend{kgStatus: 200, kgBody: kgBody, llmStatus: 200, llmBody: llmBody},
			wantKGOK:  true,
			wantLLMOK: true,
		},
		{
			name:      "kg 500 does not block llm",
			backend:   &backend{kgStatus: 500, kgBody: `{"detail": ""}`, llmStatus: 200, llmBody: llmBody},
			wantLLMOK: true,
			wantKGErr: "KG request failed (500)",
			wantCode:  errors.ErrCodeHTTPFailure,
		},
		{
			name:       "llm 503 carries detail",
			backend:    &backend{kgStatus: 200, kgBody: kgBody, llmStatus: 503, llmBody: `{"detail": "model loading"}`},
			wantKGOK:   true,
			wantLLMErr: "LLM request failed (503): model loading",
			wantCode:   errors.ErrCodeHTTPFailure,
		},
		{
			name:       "non JSON error body",
			backend:    &backend{kgStatus: 200, kgBody: kgBody, llmStatus: 502, llmBody: `<html>bad gateway</html>`},
			wantKGOK:   true,
			wantLLMErr: "LLM request failed (502)",
			wantCode:   errors.ErrCodeHTTPFailure,
		},
		{
			name:       "malformed success body",
			backend:    &backend{kgStatus: 200, kgBody: kgBody, llmStatus: 200, llmBody: `{"results": [`},
			wantKGOK:   true,
			wantLLMErr: "LLM response malformed: invalid JSON",
			wantCode:   errors.ErrCodeParseFailure,
		},
		{
			name:      "schema mismatch",
			backend:   &backend{kgStatus: 200, kgBody: `{"results": "oops"}`, llmStatus: 200, llmBody: llmBody},
			wantLLMOK: true,
			wantKGErr: "KG response malformed: unexpected shape",
			wantCode:  errors.ErrCodeParseFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.backend.handler())
			defer server.Close()

			kg, llm := newDispatcher(t).Dispatch(context.Background(), pairFor(server.URL))

			assert.Equal(t, models.EndpointKG, kg.Endpoint)
			assert.Equal(t, models.EndpointLLMOnly, llm.Endpoint)
			assert.Equal(t, tt.wantKGOK, kg.OK())
			assert.Equal(t, tt.wantLLMOK, llm.OK())
			assert.Equal(t, int32(1), tt.backend.kgHits.Load())
			assert.Equal(t, int32(1), tt.backend.llmHits.Load())

			if tt.wantKGErr != "" {
				assert.Contains(t, kg.Reason(), tt.wantKGErr)
				assert.Equal(t, tt.wantCode, kg.Failure.Code)
			}
			if tt.wantLLMErr != "" {
				assert.Contains(t, llm.Reason(), tt.wantLLMErr)
				assert.Equal(t, tt.wantCode, llm.Failure.Code)
			}
		})
	}
}

func TestDispatch_DecodesPayloadAndHeaders(t *testing.T) {
	b := &backend{kgStatus: 200, kgBody: kgBody, llmStatus: 200, llmBody: llmBody}
	server := httptest.NewServer(b.handler())
	defer server.Close()

	kg, llm := newDispatcher(t).Dispatch(context.Background(), pairFor(server.URL))
	require.True(t, kg.OK())
	require.True(t, llm.OK())

	assert.Equal(t, []string{"氣喘", "asthma"}, kg.Payload.ExtractedTerms)
	assert.Equal(t, models.OptionalText("195967001"), kg.Payload.MappedTo.BankID)
	assert.Equal(t, "氣喘是呼吸道發炎。", llm.Payload.FirstAnswer())
	assert.Equal(t, "secret", b.lastKey.Load())
}

func TestDispatch_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	kg, llm := newDispatcher(t).Dispatch(context.Background(), pairFor(base))

	require.False(t, kg.OK())
	require.False(t, llm.OK())
	assert.Equal(t, errors.ErrCodeTransportFailure, kg.Failure.Code)
	assert.Contains(t, kg.Reason(), "KG request failed: ")
	assert.Contains(t, llm.Reason(), "LLM request failed: ")
}

func TestDispatch_IssuesBothConcurrently(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()

	handler := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			arrived.Done()
			select {
			case <-release:
			case <-time.After(3 * time.Second):
				w.WriteHeader(http.StatusGatewayTimeout)
				return
			}
			_, _ = w.Write([]byte(body))
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/demo/search", handler(kgBody))
	mux.HandleFunc("/llm_only", handler(llmBody))
	server := httptest.NewServer(mux)
	defer server.Close()

	kg, llm := newDispatcher(t).Dispatch(context.Background(), pairFor(server.URL))
	assert.True(t, kg.OK(), kg.Reason())
	assert.True(t, llm.OK(), llm.Reason())
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failGet bool
	failPut bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, url string) ([]byte, bool, error) {
	if c.failGet {
		return nil, false, errors.NewCacheUnavailableError(fmt.Errorf("dial tcp: refused"))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	body, ok := c.entries[url]
	return body, ok, nil
}

func (c *memoryCache) Put(_ context.Context, url string, body []byte) error {
	if c.failPut {
		return errors.NewCacheUnavailableError(fmt.Errorf("read only replica"))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = body
	return nil
}

func TestDispatch_CacheHitSkipsBackend(t *testing.T) {
	b := &backend{kgStatus: 500, kgBody: `{}`, llmStatus: 200, llmBody: `{"results": [{"answer": "fresh"}]}`}
	server := httptest.NewServer(b.handler())
	defer server.Close()

	pair := pairFor(server.URL)
	cache := newMemoryCache()
	cache.entries[pair.LLM.URL()] = []byte(`{"results": [{"answer": "cached"}]}`)

	kg, llm := newDispatcher(t, WithCache(cache)).Dispatch(context.Background(), pair)

	assert.True(t, llm.OK())
	assert.True(t, llm.Cached)
	assert.Equal(t, "cached", llm.Payload.FirstAnswer())
	assert.Equal(t, int32(0), b.llmHits.Load())

	assert.False(t, kg.OK())
	_, stored := cache.entries[pair.KG.URL()]
	assert.False(t, stored, "failed responses are not cached")
}

func TestDispatch_StoresSuccessAndIgnoresCacheErrors(t *testing.T) {
	b := &backend{kgStatus: 200, kgBody: kgBody, llmStatus: 200, llmBody: llmBody}
	server := httptest.NewServer(b.handler())
	defer server.Close()
	pair := pairFor(server.URL)

	cache := newMemoryCache()
	kg, llm := newDispatcher(t, WithCache(cache)).Dispatch(context.Background(), pair)
	require.True(t, kg.OK())
	require.True(t, llm.OK())
	assert.JSONEq(t, kgBody, string(cache.entries[pair.KG.URL()]))
	assert.JSONEq(t, llmBody, string(cache.entries[pair.LLM.URL()]))

	broken := &memoryCache{entries: map[string][]byte{}, failGet: true, failPut: true}
	kg, llm = newDispatcher(t, WithCache(broken)).Dispatch(context.Background(), pair)
	assert.True(t, kg.OK())
	assert.True(t, llm.OK())
	assert.False(t, kg.Cached)
}

func TestDispatch_RecordsSpans(t *testing.T) {
	b := &backend{kgStatus: 404, kgBody: `{"detail": "Not Found"}`, llmStatus: 200, llmBody: llmBody}
	server := httptest.NewServer(b.handler())
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	newDispatcher(t, WithTracer(provider.Tracer("test"))).Dispatch(context.Background(), pairFor(server.URL))

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		spans[s.Name()] = s
	}
	require.Contains(t, spans, "dispatch.kg")
	require.Contains(t, spans, "dispatch.llm_only")
	assert.Equal(t, "KG request failed (404): Not Found", spans["dispatch.kg"].Status().Description)
}
