package orchestrate

import (
	"context"
	"testing"

	"github.com/policydesk/policydesk/internal/responder"
	"github.com/policydesk/policydesk/pkg/models"
)

// stubResponder is a scripted Responder for executor tests.
type stubResponder struct {
	id     models.ResponderID
	result models.ResponderResult
	panics bool
}

func (s *stubResponder) ID() models.ResponderID { return s.id }
func (s *stubResponder) Name() string           { return string(s.id) }
func (s *stubResponder) Description() string    { return "stub" }

func (s *stubResponder) Answer(context.Context, models.Question) models.ResponderResult {
	if s.panics {
		panic("responder exploded")
	}
	return s.result
}

func registryOf(t *testing.T, stubs ...*stubResponder) *responder.Registry {
	t.Helper()
	rs := make([]responder.Responder, len(stubs))
	for i, s := range stubs {
		rs[i] = s
	}
	reg, err := responder.NewRegistry(rs...)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestExecuteCollectsAllResults(t *testing.T) {
	reg := registryOf(t,
		&stubResponder{id: "hr_policy", result: models.ResponderResult{Responder: "hr_policy", Answer: "a", Success: true}},
		&stubResponder{id: "it_policy", result: models.ResponderResult{Responder: "it_policy", Answer: "b", Success: true}},
	)
	results := NewExecutor(reg, nil, nil).Execute(context.Background(),
		models.Question{Text: "q"},
		[]models.ResponderID{"hr_policy", "it_policy"})

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	seen := map[models.ResponderID]bool{}
	for _, r := range results {
		seen[r.Responder] = true
	}
	if !seen["hr_policy"] || !seen["it_policy"] {
		t.Errorf("results = %v", results)
	}
}

func TestExecuteFailedResponderStillReturned(t *testing.T) {
	reg := registryOf(t,
		&stubResponder{id: "research", result: models.ResponderResult{Responder: "research", Answer: "apology", Success: false, Err: "boom"}},
	)
	results := NewExecutor(reg, nil, nil).Execute(context.Background(),
		models.Question{Text: "q"}, []models.ResponderID{"research"})

	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Success {
		t.Error("failure flag lost")
	}
}

func TestExecutePanickedResponderExcluded(t *testing.T) {
	reg := registryOf(t,
		&stubResponder{id: "hr_policy", result: models.ResponderResult{Responder: "hr_policy", Answer: "fine", Success: true}},
		&stubResponder{id: "it_policy", panics: true},
	)
	results := NewExecutor(reg, nil, nil).Execute(context.Background(),
		models.Question{Text: "q"},
		[]models.ResponderID{"hr_policy", "it_policy"})

	if len(results) != 1 {
		t.Fatalf("got %d results, want only the surviving responder", len(results))
	}
	if results[0].Responder != "hr_policy" {
		t.Errorf("surviving result = %v", results[0])
	}
}

func TestExecuteUnknownIDSkipped(t *testing.T) {
	reg := registryOf(t,
		&stubResponder{id: "research", result: models.ResponderResult{Responder: "research", Success: true}},
	)
	results := NewExecutor(reg, nil, nil).Execute(context.Background(),
		models.Question{Text: "q"},
		[]models.ResponderID{"research", "unknown"})

	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
}

func TestExecuteEmptySelection(t *testing.T) {
	reg := registryOf(t)
	results := NewExecutor(reg, nil, nil).Execute(context.Background(),
		models.Question{Text: "q"}, nil)
	if len(results) != 0 {
		t.Fatalf("got %d results", len(results))
	}
}

func TestMergeResults(t *testing.T) {
	a := []models.ResponderResult{{Responder: "research"}}
	b := []models.ResponderResult{{Responder: "hr_policy"}, {Responder: "it_policy"}}

	merged := MergeResults(a, b)
	if len(merged) != 3 {
		t.Fatalf("len = %d", len(merged))
	}
	if got := MergeResults(nil, b); len(got) != 2 {
		t.Errorf("MergeResults(nil, b) len = %d", len(got))
	}
	if got := MergeResults(a, nil); len(got) != 1 {
		t.Errorf("MergeResults(a, nil) len = %d", len(got))
	}

	// associativity: (a++b)++c == a++(b++c)
	c := []models.ResponderResult{{Responder: "research"}}
	left := MergeResults(MergeResults(a, b), c)
	right := MergeResults(a, MergeResults(b, c))
	if len(left) != len(right) {
		t.Errorf("merge not associative: %d vs %d", len(left), len(right))
	}
}
