// Package orchestrator runs queries through the pipeline and owns the single committed answer slot.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"medqa-workers/internal/common/metrics"
	"medqa-workers/internal/models"

	"github.com/google/uuid"
)

// Phase of the committed slot.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSettled Phase = "settled"
)

// State is a snapshot of the committed slot.
type State struct {
	Phase      Phase           `json:"phase"`
	Generation uint64          `json:"generation"`
	QueryID    string          `json:"queryId,omitempty"`
	Query      *models.Query   `json:"query,omitempty"`
	Mode       models.ViewMode `json:"mode,omitempty"`
	Answer     *models.Answer  `json:"answer,omitempty"`
	Status     string          `json:"status,omitempty"`
	Failed     bool            `json:"failed"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Result is returned to the caller of RunQuery whether or not it was committed.
type Result struct {
	QueryID    string          `json:"queryId"`
	Query      models.Query    `json:"query"`
	Mode       models.ViewMode `json:"mode"`
	Answer     models.Answer   `json:"answer"`
	Status     string          `json:"status"`
	Failed     bool            `json:"failed"`
	Generation uint64          `json:"generation"`
	Committed  bool            `json:"committed"`
}

// Executor runs one query. *Pipeline implements it.
type Executor interface {
	Execute(ctx context.Context, q models.Query, mode models.ViewMode) Run
}

// RunRecorder receives one call per settled run. *observability.Observability implements it.
type RunRecorder interface {
	RecordPipelineRun(ctx context.Context, kind string, duration time.Duration)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Orchestrator struct {
	executor Executor
	recorder RunRecorder
	logger   Logger

	latest atomic.Uint64

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

func New(executor Executor, recorder RunRecorder, logger Logger) *Orchestrator {
	return &Orchestrator{
		executor: executor,
		recorder: recorder,
		logger:   logger,
		state:    State{Phase: PhaseIdle, UpdatedAt: time.Now().UTC()},
		subs:     map[int]chan State{},
	}
}

// RunQuery blocks until both endpoints settle. The answer is committed only if no newer
// query was submitted meanwhile; superseded runs still return their answer with Committed=false.
// Earlier in-flight calls are not cancelled.
func (o *Orchestrator) RunQuery(ctx context.Context, q models.Query, mode models.ViewMode) Result {
	queryID := uuid.NewString()

	// Generation and loading state change together under mu.
	o.mu.Lock()
	gen := o.latest.Add(1)
	query := q
	o.state = State{
		Phase:      PhaseLoading,
		Generation: gen,
		QueryID:    queryID,
		Query:      &query,
		Mode:       mode,
		UpdatedAt:  time.Now().UTC(),
	}
	o.publishLocked()
	o.mu.Unlock()

	log := map[string]interface{}{"queryId": queryID, "generation": gen, "mode": string(mode)}
	metrics.QueriesInflight.Inc()
	start := time.Now()
	run := o.executor.Execute(ctx, q, mode)
	elapsed := time.Since(start)
	metrics.QueriesInflight.Dec()

	kind := "derived"
	if run.Failed {
		kind = "sentinel"
	}
	metrics.AnswersTotal.WithLabelValues(kind).Inc()
	if o.recorder != nil {
		o.recorder.RecordPipelineRun(ctx, kind, elapsed)
	}

	result := Result{
		QueryID:    queryID,
		Query:      q,
		Mode:       mode,
		Answer:     run.Answer,
		Status:     run.Status,
		Failed:     run.Failed,
		Generation: gen,
	}

	o.mu.Lock()
	if gen == o.latest.Load() {
		answer := run.Answer
		o.state = State{
			Phase:      PhaseSettled,
			Generation: gen,
			QueryID:    queryID,
			Query:      &query,
			Mode:       mode,
			Answer:     &answer,
			Status:     run.Status,
			Failed:     run.Failed,
			UpdatedAt:  time.Now().UTC(),
		}
		o.publishLocked()
		result.Committed = true
	}
	o.mu.Unlock()

	log["status"] = run.Status
	log["durationMs"] = elapsed.Milliseconds()
	if result.Committed {
		o.logger.Info("query settled", log)
	} else {
		metrics.CommitsDiscarded.Inc()
		o.logger.Warn("query superseded, answer discarded", log)
	}

	return result
}

// Loading reports whether the latest submission is still in flight.
func (o *Orchestrator) Loading() bool {
	return o.Snapshot().Phase == PhaseLoading
}

// Snapshot returns a copy of the committed slot.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe delivers the current state and every later transition. Slow subscribers only
// see the most recent state. cancel must be called to release the subscription.
func (o *Orchestrator) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	ch <- o.state
	o.mu.Unlock()

	cancel := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if _, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (o *Orchestrator) publishLocked() {
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- o.state
	}
}
