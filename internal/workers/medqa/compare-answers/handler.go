// internal/workers/medqa/compare-answers/handler.go
package compareanswers

import (
	"context"
	"encoding/json"
	"fmt"

	"medqa-workers/internal/common/errors"
	"medqa-workers/internal/common/metrics"
	"medqa-workers/internal/common/validation"
	"medqa-workers/internal/medqa/orchestrator"
	"medqa-workers/internal/medqa/presentation"
	"medqa-workers/internal/medqa/topic"
	"medqa-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "medqa-compare-answers"
)

var schema = validation.MustCompileSchema(inputSchema)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Runner executes one query against both endpoints. *orchestrator.Pipeline implements it.
type Runner interface {
	Execute(ctx context.Context, q models.Query, mode models.ViewMode) orchestrator.Run
}

type Handler struct {
	config     *Config
	runner     Runner
	errHandler *errors.ErrorHandler
	logger     Logger
}

func NewHandler(config *Config, runner Runner, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:     config,
		runner:     runner,
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
	}
}

// Handle completes the job with the synthesized answer. Upstream failures still complete
// the job, with failed=true and the sentinel answer; only bad input fails it.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job.Variables)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return err
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return err
	}

	return h.completeJob(ctx, client, job, output)
}

func parseInput(variables string) (*Input, error) {
	result, err := schema.ValidateBytes([]byte(variables))
	if err != nil {
		return nil, errors.NewInvalidQueryError(fmt.Sprintf("parse variables: %v", err))
	}
	if !result.Valid {
		return nil, errors.NewInvalidQueryError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidQueryError(fmt.Sprintf("parse variables: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	mode, err := models.ParseViewMode(input.ViewMode)
	if err != nil {
		return nil, err
	}

	topicKey := input.TopicKey
	if topicKey == "" && input.TopicLabel != "" {
		if key, ok := topic.Resolve(input.TopicLabel); ok {
			topicKey = key
		}
	}

	facet := models.Facet(input.QueryType)
	q, err := models.NewQuery(topic.ComposeQuestion(input.Question, facet, topicKey), facet, topicKey)
	if err != nil {
		return nil, err
	}

	run := h.runner.Execute(ctx, q, mode)
	view := presentation.Project(run.Answer, mode, presentation.NewDisclosure(mode))

	output := &Output{
		QueryID:  uuid.NewString(),
		Question: q.Text,
		TopicKey: q.TopicKey,
		Answer:   run.Answer,
		View:     view,
		Status:   run.Status,
		Failed:   run.Failed,
	}

	h.logger.Info("answers compared", map[string]interface{}{
		"queryId": output.QueryID,
		"facet":   string(q.Facet),
		"mode":    string(mode),
		"failed":  run.Failed,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}
	return nil
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
