// Package models contains the shared data types that flow through the
// policydesk query pipeline: questions, retrieved fragments, routing
// decisions, responder results, and evaluation outcomes.
//
// All types in this package are plain data. They are created by one
// pipeline stage, read by later stages, and never mutated after creation.
package models

// Question is a single, self-contained question extracted from the raw
// user input by the splitter.
//
// A Question is immutable: the splitter creates it and every later stage
// (router, responders, synthesizer) only reads it.
type Question struct {
	// Text is the question text, trimmed of surrounding whitespace.
	Text string `json:"text"`

	// Multi is true when this question was extracted from an input that
	// contained more than one question. The orchestrator uses it to
	// decide whether the final answer needs per-question headers.
	Multi bool `json:"multi"`
}
