package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/policydesk/policydesk/internal/eval"
	"github.com/policydesk/policydesk/internal/observability"
	"github.com/policydesk/policydesk/internal/sessions"
	"github.com/policydesk/policydesk/internal/splitter"
	"github.com/policydesk/policydesk/pkg/models"
)

// Orchestrator composes the full pipeline and is the only entry point
// external callers use.
//
// Each request walks a fixed sequence: split, then route and fan out
// per question, then synthesize, then evaluate. Every stage absorbs its
// own failures; only an unrecoverable condition (cancellation, panic)
// reaches the boundary, and even then it is converted into a degraded
// response rather than an error.
type Orchestrator struct {
	router      *Router
	executor    *Executor
	synthesizer *Synthesizer
	evaluator   eval.Evaluator
	store       sessions.Store
	logger      *observability.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer
}

// Deps wires the orchestrator's collaborators. Store is optional;
// Logger, Metrics, and Tracer default to no-ops, and a missing
// Evaluator yields UNKNOWN evaluation outcomes.
type Deps struct {
	Router      *Router
	Executor    *Executor
	Synthesizer *Synthesizer
	Evaluator   eval.Evaluator
	Store       sessions.Store
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		router:      deps.Router,
		executor:    deps.Executor,
		synthesizer: deps.Synthesizer,
		evaluator:   deps.Evaluator,
		store:       deps.Store,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		tracer:      deps.Tracer,
	}
	if o.logger == nil {
		o.logger = observability.NewNopLogger()
	}
	if o.metrics == nil {
		o.metrics = observability.NewNopMetrics()
	}
	if o.tracer == nil {
		o.tracer = observability.NewNopTracer()
	}
	return o
}

// ProcessQuery runs one query through the pipeline. It always returns a
// well-formed response; fatal failures produce a degraded response with
// Success=false instead of an error.
func (o *Orchestrator) ProcessQuery(ctx context.Context, text, userID, sessionID string) (resp models.QueryResponse) {
	state := newState(text, userID, sessionID)

	requestID := uuid.NewString()
	ctx = observability.WithRequestID(ctx, requestID)
	ctx = observability.WithSessionID(ctx, sessionID)
	ctx = observability.WithUserID(ctx, userID)

	var span trace.Span
	ctx, span = o.tracer.Start(ctx, "query", attribute.String("request_id", requestID))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error(ctx, "pipeline panicked", "panic", fmt.Sprint(rec))
			err := fmt.Errorf("internal error: %v", rec)
			observability.RecordError(span, err)
			resp = o.degraded(state, err)
		}
		o.metrics.QueryDuration.Observe(resp.ProcessingTime.Seconds())
		status := "success"
		if !resp.Success {
			status = "error"
		}
		o.metrics.QueryCounter.WithLabelValues(status).Inc()
	}()

	o.logger.Info(ctx, "processing query", "length", len(text))
	o.recordMessage(ctx, sessionID, models.RoleUser, text, nil)

	_, splitSpan := o.tracer.Start(ctx, "split")
	state.Questions = splitter.Split(text)
	splitSpan.SetAttributes(attribute.Int("questions", len(state.Questions)))
	splitSpan.End()
	if state.multiQuestion() {
		o.logger.Info(ctx, "split into multiple questions", "count", len(state.Questions))
	}

	answered := make([]splitter.AnsweredQuestion, 0, len(state.Questions))
	var allSources []models.Fragment
	primary := ""

	for _, q := range state.Questions {
		if err := ctx.Err(); err != nil {
			observability.RecordError(span, err)
			return o.degraded(state, err)
		}

		routeCtx, routeSpan := o.tracer.Start(ctx, "route")
		decision := o.router.Route(routeCtx, q)
		routeSpan.SetAttributes(attribute.String("responders", respondersString(decision.Responders)))
		routeSpan.End()
		state.Routing = append(state.Routing, decision)

		execCtx, execSpan := o.tracer.Start(ctx, "fanout")
		results := o.executor.Execute(execCtx, q, decision.Responders)
		execSpan.SetAttributes(attribute.Int("results", len(results)))
		execSpan.End()
		state.Results = MergeResults(state.Results, results)

		if err := ctx.Err(); err != nil {
			observability.RecordError(span, err)
			return o.degraded(state, err)
		}

		synthCtx, synthSpan := o.tracer.Start(ctx, "synthesize")
		syn := o.synthesizer.Synthesize(synthCtx, q.Text, successful(results))
		synthSpan.End()
		answered = append(answered, splitter.AnsweredQuestion{Question: q.Text, Answer: syn.Answer})
		allSources = append(allSources, syn.Sources...)
		primary = syn.Primary
	}

	if state.multiQuestion() {
		state.FinalAnswer = splitter.Combine(answered)
		state.Primary = PrimaryMultiple
		state.Sources = DedupSources(allSources)
	} else {
		state.FinalAnswer = answered[0].Answer
		state.Primary = primary
		state.Sources = allSources
	}

	evalCtx, evalSpan := o.tracer.Start(ctx, "evaluate")
	state.Evaluation = o.evaluate(evalCtx, state)
	evalSpan.SetAttributes(
		attribute.String("method", state.Evaluation.Method),
		attribute.String("level", string(state.Evaluation.Level)))
	evalSpan.End()
	o.metrics.EvaluationCounter.WithLabelValues(state.Evaluation.Method, string(state.Evaluation.Level)).Inc()

	elapsed := time.Since(state.StartedAt)
	o.recordMessage(ctx, sessionID, models.RoleAssistant, state.FinalAnswer, map[string]any{
		"primary_responder": state.Primary,
		"sources_count":     len(state.Sources),
		"confidence_level":  string(state.Evaluation.Level),
		"processing_ms":     elapsed.Milliseconds(),
	})

	o.logger.Info(ctx, "query processed",
		"primary", state.Primary,
		"sources", len(state.Sources),
		"level", string(state.Evaluation.Level),
		"duration", elapsed)

	return models.QueryResponse{
		Answer:           state.FinalAnswer,
		PrimaryResponder: state.Primary,
		Sources:          state.Sources,
		ProcessingTime:   elapsed,
		Routing:          state.Routing,
		Evaluation:       state.Evaluation,
		Success:          true,
	}
}

func (o *Orchestrator) evaluate(ctx context.Context, state *State) models.EvaluationOutcome {
	if o.evaluator == nil {
		return eval.Unknown()
	}

	texts := make([]string, 0, len(state.Sources))
	for _, f := range state.Sources {
		texts = append(texts, f.Content)
	}

	// Multi-question batches average the per-question routing
	// confidences into one signal.
	var confidence float64
	if len(state.Routing) > 0 {
		for _, d := range state.Routing {
			confidence += d.Confidence
		}
		confidence /= float64(len(state.Routing))
	}

	return o.evaluator.Evaluate(ctx, eval.Request{
		Question:          state.Query,
		Answer:            state.FinalAnswer,
		SourceTexts:       texts,
		SourceCount:       len(state.Sources),
		RoutingConfidence: confidence,
	})
}

// degraded builds the well-formed error response for fatal failures.
func (o *Orchestrator) degraded(state *State, err error) models.QueryResponse {
	return models.QueryResponse{
		Answer:           fmt.Sprintf("I apologize, but an error occurred while processing your query: %v", err),
		PrimaryResponder: "Error",
		Sources:          []models.Fragment{},
		ProcessingTime:   time.Since(state.StartedAt),
		Routing:          state.Routing,
		Evaluation:       models.EvaluationOutcome{Level: models.ConfidenceError},
		Success:          false,
		Error:            err.Error(),
	}
}

// recordMessage appends to the session log. The store is a sink: its
// failures are logged and never fail the query.
func (o *Orchestrator) recordMessage(ctx context.Context, sessionID string, role models.MessageRole, content string, metadata map[string]any) {
	if o.store == nil || sessionID == "" {
		return
	}
	err := o.store.AddMessage(ctx, models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		o.logger.Warn(ctx, "failed to record session message", "role", string(role), "error", err)
	}
}
