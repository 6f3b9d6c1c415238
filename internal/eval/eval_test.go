package eval

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/policydesk/policydesk/pkg/models"
)

func TestHeuristicStrongAnswer(t *testing.T) {
	outcome := NewHeuristic().Evaluate(context.Background(), Request{
		Question:          "What is the leave policy?",
		Answer:            strings.Repeat("a", 300),
		SourceTexts:       []string{"leave policy text"},
		SourceCount:       5,
		RoutingConfidence: 1.0,
	})

	if outcome.Confidence == nil {
		t.Fatal("confidence missing")
	}
	// 1.0*0.30 + 1.0*0.25 + 0.9*0.20 + 0.9*0.25
	if math.Abs(*outcome.Confidence-0.955) > 1e-9 {
		t.Errorf("confidence = %v, want 0.955", *outcome.Confidence)
	}
	if outcome.Level != models.ConfidenceHigh {
		t.Errorf("level = %s, want HIGH", outcome.Level)
	}
	if outcome.Method != MethodHeuristic {
		t.Errorf("method = %s", outcome.Method)
	}
}

func TestHeuristicWeakAnswer(t *testing.T) {
	outcome := NewHeuristic().Evaluate(context.Background(), Request{
		Answer:            strings.Repeat("a", 20),
		SourceCount:       0,
		RoutingConfidence: 0.5,
	})

	// 0.5*0.30 + 0.2*0.25 + 0.3*0.20 + 0.3*0.25
	if math.Abs(*outcome.Confidence-0.335) > 1e-9 {
		t.Errorf("confidence = %v, want 0.335", *outcome.Confidence)
	}
	if outcome.Level != models.ConfidenceVeryLow {
		t.Errorf("level = %s, want VERY_LOW", outcome.Level)
	}
}

func TestHeuristicSourceCountBands(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{5, 1.0}, {3, 1.0}, {2, 0.7}, {1, 0.7}, {0, 0.2},
	}
	h := NewHeuristic()
	for _, tt := range tests {
		outcome := h.Evaluate(context.Background(), Request{SourceCount: tt.count})
		if got := outcome.Detail["sources"]; got != tt.want {
			t.Errorf("sources score for count %d = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestHeuristicBlankContextIgnored(t *testing.T) {
	outcome := NewHeuristic().Evaluate(context.Background(), Request{
		SourceTexts: []string{"   ", ""},
	})
	if outcome.Detail["context"] != 0.3 {
		t.Errorf("blank source texts should not count as context, got %v", outcome.Detail["context"])
	}
}

type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
}

func (s *scriptedGenerator) Generate(context.Context, string, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	resp := s.responses[s.calls%len(s.responses)]
	s.calls++
	return resp, nil
}

func (s *scriptedGenerator) Name() string { return "scripted" }

func TestJudgeAveragesMetrics(t *testing.T) {
	// hallucination 0.2 (inverted to 0.8), then 0.8 for the rest.
	gen := &scriptedGenerator{responses: []string{"0.2", "0.8", "0.8", "0.8"}}
	outcome := NewJudge(gen, nil).Evaluate(context.Background(), Request{
		Question:    "q",
		Answer:      "a meaningful answer",
		SourceTexts: []string{"context"},
	})

	if outcome.Method != MethodJudge {
		t.Fatalf("method = %s, want judge", outcome.Method)
	}
	if outcome.Confidence == nil || math.Abs(*outcome.Confidence-0.8) > 1e-9 {
		t.Errorf("confidence = %v, want 0.8", outcome.Confidence)
	}
	if outcome.Detail["hallucination"] != 0.2 {
		t.Errorf("raw hallucination score = %v, want 0.2", outcome.Detail["hallucination"])
	}
}

func TestJudgeFallsBackToHeuristic(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("backend down")}
	outcome := NewJudge(gen, nil).Evaluate(context.Background(), Request{
		Question:          "q",
		Answer:            strings.Repeat("a", 300),
		SourceTexts:       []string{"context"},
		SourceCount:       5,
		RoutingConfidence: 1.0,
	})

	if outcome.Method != MethodHeuristic {
		t.Fatalf("method = %s, want heuristic fallback", outcome.Method)
	}
	if outcome.Level != models.ConfidenceHigh {
		t.Errorf("level = %s", outcome.Level)
	}
}

func TestJudgeEmptyAnswerUsesHeuristic(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"0.9"}}
	outcome := NewJudge(gen, nil).Evaluate(context.Background(), Request{Answer: "  "})
	if outcome.Method != MethodHeuristic {
		t.Errorf("method = %s, want heuristic", outcome.Method)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for empty answer", gen.calls)
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.85", 0.85, false},
		{"Score: 0.4", 0.4, false},
		{"1", 1.0, false},
		{"85%", 0.85, false},
		{"42", 0, true},
		{"no number here", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseScore(tt.in)
		if tt.wantErr != (err != nil) {
			t.Errorf("parseScore(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseScore(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnknown(t *testing.T) {
	outcome := Unknown()
	if outcome.Level != models.ConfidenceUnknown {
		t.Errorf("level = %s, want UNKNOWN", outcome.Level)
	}
	if outcome.Confidence != nil {
		t.Errorf("confidence = %v, want nil", *outcome.Confidence)
	}
}

func TestBatchEvaluate(t *testing.T) {
	items := []BatchItem{
		{Responder: "hr_policy", Request: Request{Answer: strings.Repeat("a", 300), SourceCount: 5, SourceTexts: []string{"ctx"}, RoutingConfidence: 1.0}},
		{Responder: "research", Request: Request{Answer: "short", SourceCount: 0, RoutingConfidence: 0.5}},
	}

	results, summary := BatchEvaluate(context.Background(), NewHeuristic(), items)
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Responder != "hr_policy" || results[1].Responder != "research" {
		t.Error("results not in input order")
	}
	if summary.Size != 2 {
		t.Errorf("summary.Size = %d", summary.Size)
	}
	if summary.AverageConfidence == nil {
		t.Fatal("average missing")
	}
	if summary.MethodCounts[MethodHeuristic] != 2 {
		t.Errorf("method counts = %v", summary.MethodCounts)
	}
	if summary.LevelCounts[models.ConfidenceHigh] != 1 || summary.LevelCounts[models.ConfidenceVeryLow] != 1 {
		t.Errorf("level counts = %v", summary.LevelCounts)
	}
}
