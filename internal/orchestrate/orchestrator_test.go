package orchestrate

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/policydesk/policydesk/internal/eval"
	"github.com/policydesk/policydesk/internal/observability"
	"github.com/policydesk/policydesk/internal/responder"
	"github.com/policydesk/policydesk/internal/sessions"
	"github.com/policydesk/policydesk/internal/splitter"
	"github.com/policydesk/policydesk/pkg/models"
)

// domainGenerator routes deterministically by question keywords and
// answers synthesis prompts with a fixed merge.
type domainGenerator struct{}

func (domainGenerator) Generate(_ context.Context, system, user string) (string, error) {
	if strings.Contains(system, "routing assistant") {
		lower := strings.ToLower(user)
		switch {
		case strings.Contains(lower, "leave"):
			return `{"responders": ["hr_policy"], "rationale": "leave question", "confidence": 0.9}`, nil
		case strings.Contains(lower, "password"):
			return `{"responders": ["it_policy"], "rationale": "password question", "confidence": 0.9}`, nil
		}
		return `{"responders": ["research"], "rationale": "general", "confidence": 0.6}`, nil
	}
	return "merged answer", nil
}

func (domainGenerator) Name() string { return "domain" }

func hrStub() *stubResponder {
	return &stubResponder{id: models.ResponderHRPolicy, result: models.ResponderResult{
		Responder:     models.ResponderHRPolicy,
		Name:          "HR Policy Responder",
		Answer:        "Employees receive 20 days of annual leave.",
		Sources:       []models.Fragment{{ID: "hr1", Content: strings.Repeat("leave policy ", 15)}},
		Success:       true,
		FragmentCount: 1,
	}}
}

func itStub() *stubResponder {
	return &stubResponder{id: models.ResponderITPolicy, result: models.ResponderResult{
		Responder:     models.ResponderITPolicy,
		Name:          "IT Policy Responder",
		Answer:        "Passwords must be rotated every 90 days.",
		Sources:       []models.Fragment{{ID: "it1", Content: strings.Repeat("password policy ", 15)}},
		Success:       true,
		FragmentCount: 1,
	}}
}

func researchStub() *stubResponder {
	return &stubResponder{id: models.ResponderResearch, result: models.ResponderResult{
		Responder: models.ResponderResearch,
		Name:      "Research Responder",
		Answer:    "General answer.",
		Sources:   []models.Fragment{{ID: "r1", Content: strings.Repeat("general ", 20)}},
		Success:   true,
	}}
}

func testOrchestrator(t *testing.T, store sessions.Store, stubs ...*stubResponder) *Orchestrator {
	t.Helper()
	rs := make([]responder.Responder, len(stubs))
	for i, s := range stubs {
		rs[i] = s
	}
	reg, err := responder.NewRegistry(rs...)
	if err != nil {
		t.Fatal(err)
	}
	gen := domainGenerator{}
	return New(Deps{
		Router:      NewRouter(gen, nil, nil),
		Executor:    NewExecutor(reg, nil, nil),
		Synthesizer: NewSynthesizer(gen, nil, nil),
		Evaluator:   eval.NewHeuristic(),
		Store:       store,
	})
}

func TestProcessQuerySingleQuestion(t *testing.T) {
	o := testOrchestrator(t, nil, hrStub(), itStub(), researchStub())
	resp := o.ProcessQuery(context.Background(), "What is the leave policy?", "u1", "s1")

	if !resp.Success {
		t.Fatalf("Success = false: %s", resp.Error)
	}
	if resp.Answer != "Employees receive 20 days of annual leave." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if resp.PrimaryResponder != "HR Policy Responder" {
		t.Errorf("PrimaryResponder = %q", resp.PrimaryResponder)
	}
	if len(resp.Routing) != 1 || resp.Routing[0].Responders[0] != models.ResponderHRPolicy {
		t.Errorf("Routing = %v", resp.Routing)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != "hr1" {
		t.Errorf("Sources = %v", resp.Sources)
	}
	if resp.Evaluation.Confidence == nil {
		t.Error("evaluation missing")
	}
	if resp.ProcessingTime <= 0 {
		t.Error("ProcessingTime not recorded")
	}
}

func TestProcessQueryMultiQuestionScenario(t *testing.T) {
	o := testOrchestrator(t, nil, hrStub(), itStub(), researchStub())
	resp := o.ProcessQuery(context.Background(),
		"What is the leave policy and what is the password policy?", "u1", "s1")

	if !resp.Success {
		t.Fatalf("Success = false: %s", resp.Error)
	}
	if len(resp.Routing) != 2 {
		t.Fatalf("Routing decisions = %d, want 2 (one per split question)", len(resp.Routing))
	}
	if resp.Routing[0].Responders[0] != models.ResponderHRPolicy {
		t.Errorf("first question routed to %v", resp.Routing[0].Responders)
	}
	if resp.Routing[1].Responders[0] != models.ResponderITPolicy {
		t.Errorf("second question routed to %v", resp.Routing[1].Responders)
	}

	if got := strings.Count(resp.Answer, "**"); got != 4 {
		t.Errorf("answer should carry two bold headers, found %d markers: %q", got, resp.Answer)
	}
	if !strings.Contains(resp.Answer, "\n\n---\n\n") {
		t.Errorf("answer missing separator: %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "Employees receive 20 days of annual leave.") ||
		!strings.Contains(resp.Answer, "Passwords must be rotated every 90 days.") {
		t.Errorf("answer missing per-question content: %q", resp.Answer)
	}
	if resp.PrimaryResponder != PrimaryMultiple {
		t.Errorf("PrimaryResponder = %q", resp.PrimaryResponder)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("Sources = %d, want 2 after dedup", len(resp.Sources))
	}
}

func TestProcessQueryIdempotent(t *testing.T) {
	o := testOrchestrator(t, nil, hrStub(), itStub(), researchStub())
	query := "What is the leave policy and what is the password policy?"

	first := o.ProcessQuery(context.Background(), query, "u1", "s1")
	second := o.ProcessQuery(context.Background(), query, "u1", "s1")

	if first.Answer != second.Answer {
		t.Errorf("answers differ:\n%q\n%q", first.Answer, second.Answer)
	}
	if !reflect.DeepEqual(first.Sources, second.Sources) {
		t.Errorf("sources differ: %v vs %v", first.Sources, second.Sources)
	}
}

func TestProcessQueryAllRespondersFail(t *testing.T) {
	failing := &stubResponder{id: models.ResponderHRPolicy, result: models.ResponderResult{
		Responder: models.ResponderHRPolicy,
		Name:      "HR Policy Responder",
		Answer:    "I apologize, but I encountered an error processing your query: boom",
		Success:   false,
		Err:       "boom",
	}}
	o := testOrchestrator(t, nil, failing, itStub(), researchStub())
	resp := o.ProcessQuery(context.Background(), "What is the leave policy?", "u1", "s1")

	// A total fan-out failure degrades through synthesis, not through the
	// fatal-error path.
	if !resp.Success {
		t.Fatalf("Success = false: %s", resp.Error)
	}
	if resp.Answer != "I apologize, but I couldn't generate a response." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if resp.PrimaryResponder != PrimaryNone {
		t.Errorf("PrimaryResponder = %q", resp.PrimaryResponder)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("Sources = %d", len(resp.Sources))
	}
}

func TestProcessQueryCancelledContext(t *testing.T) {
	o := testOrchestrator(t, nil, hrStub(), itStub(), researchStub())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := o.ProcessQuery(ctx, "What is the leave policy?", "u1", "s1")
	if resp.Success {
		t.Fatal("cancelled request must not report success")
	}
	if resp.PrimaryResponder != "Error" {
		t.Errorf("PrimaryResponder = %q", resp.PrimaryResponder)
	}
	if resp.Evaluation.Level != models.ConfidenceError {
		t.Errorf("Evaluation.Level = %s", resp.Evaluation.Level)
	}
	if resp.Error == "" {
		t.Error("Error string missing")
	}
	if resp.Answer == "" {
		t.Error("degraded response must still carry an answer")
	}
}

func recordedOrchestrator(t *testing.T) (*Orchestrator, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	reg, err := responder.NewRegistry(hrStub(), itStub(), researchStub())
	if err != nil {
		t.Fatal(err)
	}
	gen := domainGenerator{}
	o := New(Deps{
		Router:      NewRouter(gen, nil, nil),
		Executor:    NewExecutor(reg, nil, nil),
		Synthesizer: NewSynthesizer(gen, nil, nil),
		Evaluator:   eval.NewHeuristic(),
		Tracer:      observability.NewTracerFromProvider(provider),
	})
	return o, recorder
}

func TestProcessQueryEmitsStageSpans(t *testing.T) {
	o, recorder := recordedOrchestrator(t)
	o.ProcessQuery(context.Background(), "What is the leave policy?", "u1", "s1")

	names := map[string]int{}
	for _, s := range recorder.Ended() {
		names[s.Name()]++
	}
	for _, want := range []string{"query", "split", "route", "fanout", "synthesize", "evaluate"} {
		if names[want] == 0 {
			t.Errorf("missing %q span, recorded %v", want, names)
		}
	}
}

func TestProcessQueryCancelledContextMarksSpanFailed(t *testing.T) {
	o, recorder := recordedOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.ProcessQuery(ctx, "What is the leave policy?", "u1", "s1")

	var found bool
	for _, s := range recorder.Ended() {
		if s.Name() != "query" {
			continue
		}
		found = true
		if s.Status().Code != codes.Error {
			t.Errorf("query span status = %v, want error", s.Status().Code)
		}
	}
	if !found {
		t.Fatal("query span not recorded")
	}
}

func TestProcessQueryWithoutEvaluator(t *testing.T) {
	reg, err := responder.NewRegistry(hrStub(), itStub(), researchStub())
	if err != nil {
		t.Fatal(err)
	}
	gen := domainGenerator{}
	o := New(Deps{
		Router:      NewRouter(gen, nil, nil),
		Executor:    NewExecutor(reg, nil, nil),
		Synthesizer: NewSynthesizer(gen, nil, nil),
	})

	resp := o.ProcessQuery(context.Background(), "What is the leave policy?", "u1", "s1")
	if !resp.Success {
		t.Fatalf("Success = false: %s", resp.Error)
	}
	if resp.Evaluation.Level != models.ConfidenceUnknown {
		t.Errorf("Evaluation.Level = %s, want UNKNOWN", resp.Evaluation.Level)
	}
	if resp.Evaluation.Confidence != nil {
		t.Errorf("Confidence = %v, want nil", *resp.Evaluation.Confidence)
	}
}

func TestStateMultiQuestion(t *testing.T) {
	compound := &State{Questions: splitter.Split("What is the leave policy? What is the password policy?")}
	if !compound.multiQuestion() {
		t.Error("compound input not flagged as multi-question")
	}
	single := &State{Questions: splitter.Split("What is the leave policy?")}
	if single.multiQuestion() {
		t.Error("single question flagged as multi-question")
	}
	if (&State{}).multiQuestion() {
		t.Error("empty state flagged as multi-question")
	}
}

func TestProcessQueryRecordsSessionMessages(t *testing.T) {
	store := sessions.NewMemoryStore()
	o := testOrchestrator(t, store, hrStub(), itStub(), researchStub())
	o.ProcessQuery(context.Background(), "What is the leave policy?", "u1", "s1")

	history, err := store.History(context.Background(), "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d messages, want user + assistant", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "What is the leave policy?" {
		t.Errorf("user message = %+v", history[0])
	}
	if history[1].Role != models.RoleAssistant {
		t.Errorf("assistant message = %+v", history[1])
	}
	if history[1].Metadata["primary_responder"] != "HR Policy Responder" {
		t.Errorf("assistant metadata = %v", history[1].Metadata)
	}
}
