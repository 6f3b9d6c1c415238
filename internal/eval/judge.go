package eval

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/policydesk/policydesk/internal/generation"
	"github.com/policydesk/policydesk/internal/observability"
	"github.com/policydesk/policydesk/pkg/models"
)

var scorePattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)

const judgeScoreSystem = "You are a strict evaluator. Return only a single number between 0 and 1."

// Judge scores an answer with model-graded metrics: hallucination
// (inverted before averaging), answer relevance, context precision,
// and context recall. The overall confidence is the unweighted mean of
// the metrics that succeed. When every metric fails, the judge falls
// back to the heuristic strategy so callers always get an outcome.
type Judge struct {
	generator generation.Generator
	fallback  *Heuristic
	logger    *observability.Logger
}

// NewJudge creates a model-graded evaluator.
func NewJudge(generator generation.Generator, logger *observability.Logger) *Judge {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Judge{
		generator: generator,
		fallback:  NewHeuristic(),
		logger:    logger,
	}
}

type judgeMetric struct {
	name    string
	prompt  string
	inverse bool
}

// Evaluate implements Evaluator.
func (j *Judge) Evaluate(ctx context.Context, req Request) models.EvaluationOutcome {
	if strings.TrimSpace(req.Answer) == "" {
		return j.fallback.Evaluate(ctx, req)
	}

	contextBlock := strings.Join(req.SourceTexts, "\n\n")
	metrics := []judgeMetric{
		{
			name: "hallucination",
			prompt: fmt.Sprintf(
				"0 means every claim is supported by the context. 1 means the answer is fabricated.\n\nQuestion:\n%s\n\nContext:\n%s\n\nAnswer:\n%s\n\nScore (0-1):",
				req.Question, contextBlock, req.Answer),
			inverse: true,
		},
		{
			name: "answer_relevance",
			prompt: fmt.Sprintf(
				"0 means the answer is unrelated. 1 means it fully answers the question.\n\nQuestion:\n%s\n\nAnswer:\n%s\n\nScore (0-1):",
				req.Question, req.Answer),
		},
		{
			name: "context_precision",
			prompt: fmt.Sprintf(
				"0 means the retrieved context is irrelevant to the question. 1 means every passage is on-topic.\n\nQuestion:\n%s\n\nContext:\n%s\n\nScore (0-1):",
				req.Question, contextBlock),
		},
		{
			name: "context_recall",
			prompt: fmt.Sprintf(
				"0 means the answer ignores the context. 1 means it captures all key facts from the context.\n\nContext:\n%s\n\nAnswer:\n%s\n\nScore (0-1):",
				contextBlock, req.Answer),
		},
	}

	detail := make(map[string]float64)
	var scores []float64
	for _, m := range metrics {
		score, err := j.scoreMetric(ctx, m.prompt)
		if err != nil {
			j.logger.Warn(ctx, "judge metric failed", "metric", m.name, "error", err)
			continue
		}
		detail[m.name] = score
		if m.inverse {
			score = 1.0 - score
		}
		scores = append(scores, score)
	}

	if len(scores) == 0 {
		j.logger.Warn(ctx, "all judge metrics failed, using heuristic fallback")
		return j.fallback.Evaluate(ctx, req)
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	confidence := sum / float64(len(scores))

	return models.EvaluationOutcome{
		Confidence: &confidence,
		Level:      models.LevelForScore(confidence),
		Method:     MethodJudge,
		Detail:     detail,
	}
}

func (j *Judge) scoreMetric(ctx context.Context, prompt string) (float64, error) {
	text, err := j.generator.Generate(ctx, judgeScoreSystem, prompt)
	if err != nil {
		return 0, err
	}
	return parseScore(text)
}

// parseScore extracts a 0-1 score from judge output. Percentages up to
// 100 are accepted when the text contains a '%'.
func parseScore(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, fmt.Errorf("empty judge response")
	}
	match := scorePattern.FindString(trimmed)
	if match == "" {
		return 0, fmt.Errorf("no numeric score in response: %q", trimmed)
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", match, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("score out of range: %v", val)
	}
	if val > 1 {
		if val <= 100 && strings.Contains(trimmed, "%") {
			val = val / 100
		} else {
			return 0, fmt.Errorf("score out of range: %v", val)
		}
	}
	return val, nil
}
