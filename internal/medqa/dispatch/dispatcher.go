// Package dispatch issues the KG and LLM-only requests concurrently and classifies each outcome.
package dispatch

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"medqa-workers/internal/common/errors"
	httpclient "medqa-workers/internal/common/http"
	"medqa-workers/internal/common/metrics"
	"medqa-workers/internal/common/validation"
	"medqa-workers/internal/medqa/request"
	"medqa-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

var (
	//go:embed schemas/kg.json
	kgSchemaJSON string
	//go:embed schemas/llm_only.json
	llmSchemaJSON string

	kgSchema  = validation.MustCompileSchema(kgSchemaJSON)
	llmSchema = validation.MustCompileSchema(llmSchemaJSON)
)

// Outcome is the settled result of one endpoint call. Exactly one of Payload or Failure is meaningful.
type Outcome[P any] struct {
	Endpoint models.Endpoint
	Payload  P
	Failure  *errors.StandardError
	Cached   bool
}

func (o Outcome[P]) OK() bool { return o.Failure == nil }

// Reason is the failure message, or "" on success.
func (o Outcome[P]) Reason() string {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Message
}

// Transport performs a GET and returns any status without error.
type Transport interface {
	Get(ctx context.Context, url string, headers map[string]string) (*httpclient.Response, error)
}

// ResponseCache stores successful bodies by URL. Errors are logged and otherwise ignored.
type ResponseCache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Put(ctx context.Context, url string, body []byte) error
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Dispatcher struct {
	transport Transport
	cache     ResponseCache
	tracer    trace.Tracer
	logger    Logger
}

type Option func(*Dispatcher)

func WithCache(cache ResponseCache) Option {
	return func(d *Dispatcher) { d.cache = cache }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = tracer }
}

func New(transport Transport, logger Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport: transport,
		tracer:    noop.NewTracerProvider().Tracer("dispatch"),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch issues both requests concurrently and returns once both have settled.
// A failure on one endpoint never affects the other.
func (d *Dispatcher) Dispatch(ctx context.Context, pair request.Pair) (Outcome[models.KGPayload], Outcome[models.LLMPayload]) {
	var (
		kg  Outcome[models.KGPayload]
		llm Outcome[models.LLMPayload]
		g   errgroup.Group
	)

	g.Go(func() error {
		kg = call[models.KGPayload](ctx, d, pair.KG, kgSchema)
		return nil
	})
	g.Go(func() error {
		llm = call[models.LLMPayload](ctx, d, pair.LLM, llmSchema)
		return nil
	})
	_ = g.Wait()

	return kg, llm
}

func call[P any](ctx context.Context, d *Dispatcher, req models.ServiceRequest, schema *validation.Schema) Outcome[P] {
	slug := req.Endpoint.Slug()
	ctx, span := d.tracer.Start(ctx, "dispatch."+slug, trace.WithAttributes(
		attribute.String("medqa.endpoint", string(req.Endpoint)),
		attribute.String("url.full", req.BaseURL),
	))
	defer span.End()

	start := time.Now()
	out := fetch[P](ctx, d, req, schema)
	elapsed := time.Since(start)

	outcome := "success"
	if out.Failure != nil {
		outcome = outcomeLabel(out.Failure.Code)
		span.RecordError(out.Failure)
		span.SetStatus(codes.Error, out.Failure.Message)
	}
	if status := out.Failure.Status(); status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	span.SetAttributes(attribute.String("medqa.outcome", outcome), attribute.Bool("medqa.cached", out.Cached))

	metrics.DispatchTotal.WithLabelValues(slug, outcome).Inc()
	metrics.DispatchDuration.WithLabelValues(slug).Observe(elapsed.Seconds())

	fields := map[string]interface{}{
		"endpoint":   string(req.Endpoint),
		"outcome":    outcome,
		"cached":     out.Cached,
		"durationMs": elapsed.Milliseconds(),
	}
	if out.Failure != nil {
		fields["reason"] = out.Failure.Message
		d.logger.Warn("dispatch failed", fields)
	} else {
		d.logger.Info("dispatch settled", fields)
	}

	return out
}

func fetch[P any](ctx context.Context, d *Dispatcher, req models.ServiceRequest, schema *validation.Schema) Outcome[P] {
	out := Outcome[P]{Endpoint: req.Endpoint}
	label := req.Endpoint.Label()
	url := req.URL()

	if d.cache != nil {
		body, ok, err := d.cache.Get(ctx, url)
		if err != nil {
			d.logger.Warn("response cache read failed", map[string]interface{}{"endpoint": string(req.Endpoint), "error": err})
		}
		if ok {
			if payload, err := decode[P](body, schema); err == nil {
				metrics.DispatchCacheHits.WithLabelValues(req.Endpoint.Slug()).Inc()
				out.Payload = payload
				out.Cached = true
				return out
			}
		}
	}

	resp, err := d.transport.Get(ctx, url, req.Headers)
	if err != nil {
		out.Failure = errors.NewTransportFailureError(label, err)
		return out
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out.Failure = errors.NewHTTPFailureError(label, resp.StatusCode, extractDetail(resp.Body))
		return out
	}

	payload, err := decode[P](resp.Body, schema)
	if err != nil {
		out.Failure = errors.NewParseFailureError(label, err)
		return out
	}
	out.Payload = payload

	if d.cache != nil {
		if err := d.cache.Put(ctx, url, resp.Body); err != nil {
			d.logger.Warn("response cache write failed", map[string]interface{}{"endpoint": string(req.Endpoint), "error": err})
		}
	}

	return out
}

// decode checks the body against the endpoint schema before unmarshalling into typed optional fields.
func decode[P any](body []byte, schema *validation.Schema) (P, error) {
	var payload P

	result, err := schema.ValidateBytes(body)
	if err != nil {
		return payload, fmt.Errorf("invalid JSON: %w", err)
	}
	if !result.Valid {
		return payload, fmt.Errorf("unexpected shape: %s", result.Summary())
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, fmt.Errorf("decode: %w", err)
	}
	return payload, nil
}

// extractDetail reads an optional string "detail" from an error body.
func extractDetail(body []byte) string {
	var envelope struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if s, ok := envelope.Detail.(string); ok {
		return s
	}
	return ""
}

func outcomeLabel(code errors.ErrorCode) string {
	switch code {
	case errors.ErrCodeTransportFailure:
		return "transport_failure"
	case errors.ErrCodeHTTPFailure:
		return "http_failure"
	case errors.ErrCodeParseFailure:
		return "parse_failure"
	default:
		return "failure"
	}
}
