package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/policydesk/policydesk/internal/config"
	"github.com/policydesk/policydesk/internal/eval"
	"github.com/policydesk/policydesk/internal/generation"
	"github.com/policydesk/policydesk/internal/observability"
	"github.com/policydesk/policydesk/internal/orchestrate"
	"github.com/policydesk/policydesk/internal/responder"
	"github.com/policydesk/policydesk/internal/retrieval"
	"github.com/policydesk/policydesk/internal/sessions"
)

// app is the composition root: every long-lived collaborator is
// constructed exactly once here and shared by reference. The generator
// and retriever clients are safe for concurrent use by multiple
// in-flight queries.
type app struct {
	cfg          *config.Config
	logger       *observability.Logger
	metrics      *observability.Metrics
	orchestrator *orchestrate.Orchestrator
	registry     *responder.Registry
	evaluator    eval.Evaluator
	store        sessions.Store

	shutdowns []func(context.Context) error
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	a.logger = observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	a.metrics = observability.NewMetrics(prometheus.DefaultRegisterer)

	tracer, stopTracer, err := observability.NewTracer(ctx, observability.TraceConfig{
		ServiceName:  "policydesk",
		Environment:  cfg.Tracing.Environment,
		Endpoint:     cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, err
	}
	a.shutdowns = append(a.shutdowns, stopTracer)

	generator, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}

	retriever, err := newRetriever(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.shutdowns = append(a.shutdowns, func(context.Context) error { return retriever.Close() })

	a.registry, err = responder.DefaultRegistry(responder.Deps{
		Retriever:    retriever,
		Generator:    generator,
		Logger:       a.logger,
		OverFetch:    cfg.Retrieval.OverFetch,
		MaxFragments: cfg.Retrieval.MaxFragments,
	})
	if err != nil {
		return nil, err
	}

	a.evaluator = newEvaluator(cfg, generator, a.logger)

	a.store, err = newStore(cfg)
	if err != nil {
		return nil, err
	}
	a.shutdowns = append(a.shutdowns, func(context.Context) error { return a.store.Close() })

	a.orchestrator = orchestrate.New(orchestrate.Deps{
		Router:      orchestrate.NewRouter(generator, a.logger, a.metrics),
		Executor:    orchestrate.NewExecutor(a.registry, a.logger, a.metrics),
		Synthesizer: orchestrate.NewSynthesizer(generator, a.logger, a.metrics),
		Evaluator:   a.evaluator,
		Store:       a.store,
		Logger:      a.logger,
		Metrics:     a.metrics,
		Tracer:      tracer,
	})
	return a, nil
}

func (a *app) close(ctx context.Context) {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](ctx); err != nil {
			a.logger.Warn(ctx, "shutdown step failed", "error", err)
		}
	}
}

func newGenerator(cfg *config.Config) (generation.Generator, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		return generation.NewAnthropicGenerator(generation.AnthropicConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: float64(cfg.LLM.Temperature),
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	case "openai":
		return generation.NewOpenAIGenerator(generation.OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func newRetriever(ctx context.Context, cfg *config.Config) (*retrieval.QdrantRetriever, error) {
	embedder, err := retrieval.NewOpenAIEmbedder(cfg.LLM.APIKey, cfg.LLM.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	return retrieval.NewQdrantRetriever(ctx, retrieval.QdrantConfig{
		Host:       cfg.Retrieval.QdrantHost,
		Port:       cfg.Retrieval.QdrantPort,
		Collection: cfg.Retrieval.Collection,
	}, embedder)
}

func newEvaluator(cfg *config.Config, generator generation.Generator, logger *observability.Logger) eval.Evaluator {
	if cfg.Eval.Method == "judge" {
		return eval.NewJudge(generator, logger)
	}
	return eval.NewHeuristic()
}

func newStore(cfg *config.Config) (sessions.Store, error) {
	if cfg.Sessions.Backend == "sqlite" {
		return sessions.NewSQLiteStore(cfg.Sessions.Path)
	}
	return sessions.NewMemoryStore(), nil
}
