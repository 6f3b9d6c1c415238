package orchestrate

import (
	"context"
	"sync"
	"time"

	"github.com/policydesk/policydesk/internal/observability"
	"github.com/policydesk/policydesk/internal/responder"
	"github.com/policydesk/policydesk/pkg/models"
)

// Executor fans one question out to the selected responders
// concurrently and collects their results.
//
// Each invocation is independent: its own retrieval call, its own
// generation call, no shared mutable state. A responder that fails
// internally still contributes a result with Success=false. A
// responder that panics is logged and excluded from the returned list;
// the batch itself never aborts. Result order follows completion, not
// request order, and carries no meaning downstream.
type Executor struct {
	registry *responder.Registry
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewExecutor creates an executor over the registry.
func NewExecutor(registry *responder.Registry, logger *observability.Logger, metrics *observability.Metrics) *Executor {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &Executor{registry: registry, logger: logger, metrics: metrics}
}

// Execute runs every selected responder and waits for all of them.
// Unknown identifiers are logged and skipped. No retries, no early
// cancellation of slow siblings; cancellation comes only from ctx.
func (e *Executor) Execute(ctx context.Context, q models.Question, ids []models.ResponderID) []models.ResponderResult {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]models.ResponderResult, 0, len(ids))
	)

	for _, id := range ids {
		resp, ok := e.registry.Lookup(id)
		if !ok {
			e.logger.Warn(ctx, "routed to unknown responder, skipping", "responder", string(id))
			continue
		}

		wg.Add(1)
		go func(id models.ResponderID, resp responder.Responder) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					e.logger.Error(ctx, "responder panicked",
						"responder", string(id),
						"panic", rec)
					e.metrics.ResponderCounter.WithLabelValues(string(id), "panic").Inc()
				}
			}()

			start := time.Now()
			result := resp.Answer(ctx, q)
			e.metrics.ResponderDuration.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())

			status := "success"
			if !result.Success {
				status = "error"
				e.logger.Warn(ctx, "responder failed",
					"responder", string(id),
					"error", result.Err)
			}
			e.metrics.ResponderCounter.WithLabelValues(string(id), status).Inc()

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(id, resp)
	}

	wg.Wait()
	return results
}

// MergeResults concatenates two partial result sets. The merge is
// associative and order-insensitive by contract; callers must not read
// meaning into result order.
func MergeResults(a, b []models.ResponderResult) []models.ResponderResult {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]models.ResponderResult, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
