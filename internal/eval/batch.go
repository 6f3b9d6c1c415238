package eval

import (
	"context"
	"sync"
	"time"

	"github.com/policydesk/policydesk/pkg/models"
)

// BatchItem is one answer to score in a batch run.
type BatchItem struct {
	Request   Request
	Responder string
}

// BatchResult pairs an item with its outcome.
type BatchResult struct {
	Responder string
	Outcome   models.EvaluationOutcome
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Size              int
	AverageConfidence *float64
	LevelCounts       map[models.ConfidenceLevel]int
	MethodCounts      map[string]int
	Duration          time.Duration
}

// BatchEvaluate scores every item concurrently with the given
// evaluator. Results are returned in input order; individual outcomes
// can be UNKNOWN but the batch itself never fails.
func BatchEvaluate(ctx context.Context, evaluator Evaluator, items []BatchItem) ([]BatchResult, BatchSummary) {
	start := time.Now()
	results := make([]BatchResult, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item BatchItem) {
			defer wg.Done()
			results[i] = BatchResult{
				Responder: item.Responder,
				Outcome:   evaluator.Evaluate(ctx, item.Request),
			}
		}(i, item)
	}
	wg.Wait()

	summary := BatchSummary{
		Size:         len(items),
		LevelCounts:  make(map[models.ConfidenceLevel]int),
		MethodCounts: make(map[string]int),
		Duration:     time.Since(start),
	}
	var sum float64
	var scored int
	for _, r := range results {
		summary.LevelCounts[r.Outcome.Level]++
		summary.MethodCounts[r.Outcome.Method]++
		if r.Outcome.Confidence != nil {
			sum += *r.Outcome.Confidence
			scored++
		}
	}
	if scored > 0 {
		avg := sum / float64(scored)
		summary.AverageConfidence = &avg
	}
	return results, summary
}
