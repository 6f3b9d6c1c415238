// Package eval scores the trustworthiness of a synthesized answer.
//
// Two strategies exist: a model-graded judge that asks an LLM to score
// quality metrics, and a deterministic heuristic built from routing
// confidence, retrieval support, and answer shape. The heuristic is
// always available and serves as the judge's fallback. An evaluator
// never fails; total breakdown yields an UNKNOWN outcome.
//
// The two strategies score on different methodologies with no
// normalization between them. Outcomes carry a method tag so callers
// never compare scores across strategies.
package eval

import (
	"context"

	"github.com/policydesk/policydesk/pkg/models"
)

// Method tags recorded on outcomes.
const (
	MethodHeuristic = "heuristic"
	MethodJudge     = "judge"
)

// Request carries the signals available for scoring one answer.
type Request struct {
	Question          string
	Answer            string
	SourceTexts       []string
	SourceCount       int
	RoutingConfidence float64
}

// Evaluator scores one answer. Implementations never return an error;
// unscoreable requests produce an outcome with level UNKNOWN.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) models.EvaluationOutcome
}

// Unknown is the outcome reported when no scoring strategy ran at all,
// such as a pipeline assembled without an evaluator.
func Unknown() models.EvaluationOutcome {
	return models.EvaluationOutcome{Level: models.ConfidenceUnknown}
}
