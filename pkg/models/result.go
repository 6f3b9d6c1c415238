package models

import "time"

// ResponderResult is the outcome of one responder invocation. A responder
// never fails outright: errors are folded into Success and Err so that
// downstream merge logic has a uniform shape to work with.
type ResponderResult struct {
	// Responder is the identifier of the responder that produced this.
	Responder ResponderID `json:"responder"`

	// Name is the responder's human-readable name, used as the label in
	// synthesized answers ("**HR Policy:**").
	Name string `json:"name"`

	// Answer is the generated answer. Always non-empty; on generation
	// failure it holds an apologetic error string.
	Answer string `json:"answer"`

	// Sources lists the fragments used as supporting context.
	Sources []Fragment `json:"sources"`

	// Success is false when retrieval or generation failed inside the
	// responder. Failed results are logged and excluded from synthesis.
	Success bool `json:"success"`

	// Err holds the failure description when Success is false.
	Err string `json:"error,omitempty"`

	// FragmentCount is the number of fragments that survived filtering.
	FragmentCount int `json:"fragment_count"`
}

// QueryResponse is the single structure returned to external callers for
// one processed query. It is always well-formed: even a fatal pipeline
// failure produces a degraded response rather than an error.
type QueryResponse struct {
	// Answer is the final synthesized answer text.
	Answer string `json:"answer"`

	// PrimaryResponder labels who produced the answer: a responder name,
	// "Multiple Responders", or "None" / "Error" on degraded paths.
	PrimaryResponder string `json:"primary_responder"`

	// Sources lists the supporting fragments, deduplicated across
	// questions when the input contained several.
	Sources []Fragment `json:"sources"`

	// ProcessingTime is the wall-clock duration of the whole pipeline.
	ProcessingTime time.Duration `json:"processing_time"`

	// Routing holds the per-question routing decisions, in question order.
	Routing []RoutingDecision `json:"routing"`

	// Evaluation is the trustworthiness assessment of the final answer.
	Evaluation EvaluationOutcome `json:"evaluation"`

	// Success is false only for orchestrator-level fatal failures.
	Success bool `json:"success"`

	// Error describes the fatal failure when Success is false.
	Error string `json:"error,omitempty"`
}
