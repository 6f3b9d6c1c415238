package models

import "fmt"

// ConfidenceLevel is the categorical bucket derived from a continuous
// evaluation score.
type ConfidenceLevel string

const (
	ConfidenceHigh    ConfidenceLevel = "HIGH"
	ConfidenceMedium  ConfidenceLevel = "MEDIUM"
	ConfidenceLow     ConfidenceLevel = "LOW"
	ConfidenceVeryLow ConfidenceLevel = "VERY_LOW"

	// ConfidenceUnknown means no score could be computed.
	ConfidenceUnknown ConfidenceLevel = "UNKNOWN"

	// ConfidenceError marks the evaluation attached to a degraded
	// response from the orchestrator's fatal-error path.
	ConfidenceError ConfidenceLevel = "ERROR"
)

// LevelForScore maps a scalar confidence in [0,1] to its categorical
// level. Both evaluation strategies share this mapping.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.6:
		return ConfidenceMedium
	case score >= 0.4:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// EvaluationOutcome is the trustworthiness assessment for one final
// answer. Derived once, never mutated.
type EvaluationOutcome struct {
	// Confidence is the overall score in [0,1], or nil when no metric
	// could be computed.
	Confidence *float64 `json:"confidence,omitempty"`

	// Level is the categorical bucket for Confidence.
	Level ConfidenceLevel `json:"level"`

	// Method names the strategy that produced the score: "judge" or
	// "heuristic".
	Method string `json:"method"`

	// Detail holds the per-metric sub-scores that fed the overall score.
	Detail map[string]float64 `json:"detail,omitempty"`
}

// Explanation renders a human-readable description of the outcome for
// end users.
func (e *EvaluationOutcome) Explanation() string {
	if e.Confidence == nil {
		return "Unable to evaluate response confidence."
	}
	pct := int(*e.Confidence*100 + 0.5)
	var base string
	switch e.Level {
	case ConfidenceHigh:
		base = fmt.Sprintf("This response has high confidence (%d%%). The answer appears well-supported by the retrieved context.", pct)
	case ConfidenceMedium:
		base = fmt.Sprintf("This response has moderate confidence (%d%%). Some aspects may need verification.", pct)
	case ConfidenceLow:
		base = fmt.Sprintf("This response has low confidence (%d%%). The answer may not be fully supported by the available context.", pct)
	case ConfidenceVeryLow:
		base = fmt.Sprintf("This response has very low confidence (%d%%). Verify it against authoritative sources before use.", pct)
	default:
		base = fmt.Sprintf("Confidence: %d%%.", pct)
	}
	switch e.Method {
	case "judge":
		return base + " (Evaluated with model-graded metrics.)"
	case "heuristic":
		return base + " (Evaluated from response characteristics.)"
	default:
		return base
	}
}
