package orchestrator

import (
	"context"

	"medqa-workers/internal/medqa/dispatch"
	"medqa-workers/internal/medqa/request"
	"medqa-workers/internal/medqa/synthesis"
	"medqa-workers/internal/models"
)

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, pair request.Pair) (dispatch.Outcome[models.KGPayload], dispatch.Outcome[models.LLMPayload])
}

// Endpoint is where both backend services live.
type Endpoint struct {
	APIBase string
	APIKey  string
}

// Run is the result of one pipeline execution.
type Run struct {
	Answer models.Answer
	Status string
	Failed bool
}

// Pipeline is build, dispatch, synthesize. It holds no per-query state and is safe for concurrent use.
type Pipeline struct {
	endpoint    Endpoint
	dispatcher  Dispatcher
	synthesizer *synthesis.Synthesizer
}

func NewPipeline(endpoint Endpoint, dispatcher Dispatcher, synthesizer *synthesis.Synthesizer) *Pipeline {
	return &Pipeline{
		endpoint:    endpoint,
		dispatcher:  dispatcher,
		synthesizer: synthesizer,
	}
}

// Execute waits for both endpoints before synthesizing, so the answer never reflects only one of them.
func (p *Pipeline) Execute(ctx context.Context, q models.Query, mode models.ViewMode) Run {
	pair := request.Build(q, mode, p.endpoint.APIBase, p.endpoint.APIKey)
	kg, llm := p.dispatcher.Dispatch(ctx, pair)

	answer := p.synthesizer.Synthesize(q, kg, llm)
	if failure := synthesis.FirstFailure(kg, llm); failure != nil {
		return Run{Answer: answer, Status: failure.Message, Failed: true}
	}
	return Run{Answer: answer, Status: p.synthesizer.Messages().StatusDone}
}
