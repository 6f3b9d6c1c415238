package eval

import (
	"context"
	"strings"

	"github.com/policydesk/policydesk/pkg/models"
)

// Factor weights. They sum to 1.0 so the result stays in [0,1].
const (
	weightRouting = 0.30
	weightSources = 0.25
	weightContext = 0.20
	weightLength  = 0.25
)

// Heuristic scores an answer from observable characteristics alone: no
// model call, deterministic, always succeeds.
type Heuristic struct{}

// NewHeuristic creates the heuristic evaluator.
func NewHeuristic() *Heuristic { return &Heuristic{} }

// Evaluate implements Evaluator.
func (h *Heuristic) Evaluate(_ context.Context, req Request) models.EvaluationOutcome {
	routing := req.RoutingConfidence

	var sources float64
	switch {
	case req.SourceCount >= 3:
		sources = 1.0
	case req.SourceCount >= 1:
		sources = 0.7
	default:
		sources = 0.2
	}

	contextScore := 0.3
	if hasContext(req.SourceTexts) {
		contextScore = 0.9
	}

	var length float64
	switch n := len(req.Answer); {
	case n > 200:
		length = 0.9
	case n > 100:
		length = 0.7
	case n > 50:
		length = 0.5
	default:
		length = 0.3
	}

	confidence := routing*weightRouting +
		sources*weightSources +
		contextScore*weightContext +
		length*weightLength

	return models.EvaluationOutcome{
		Confidence: &confidence,
		Level:      models.LevelForScore(confidence),
		Method:     MethodHeuristic,
		Detail: map[string]float64{
			"routing":        routing,
			"sources":        sources,
			"context":        contextScore,
			"answer_quality": length,
		},
	}
}

func hasContext(texts []string) bool {
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}
