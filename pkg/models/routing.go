package models

// ResponderID identifies one of the fixed set of specialized responders.
//
// The set is closed: routing output is validated against KnownResponders
// and anything else is discarded. New responders require a new constant
// here plus an implementation registered with the responder registry.
type ResponderID string

const (
	// ResponderResearch handles general questions that do not fit a
	// specific policy domain. It is also the routing fallback.
	ResponderResearch ResponderID = "research"

	// ResponderHRPolicy handles HR policies: benefits, leave,
	// compensation, onboarding, workplace conduct.
	ResponderHRPolicy ResponderID = "hr_policy"

	// ResponderITPolicy handles IT policies: security, infrastructure,
	// software, hardware, network.
	ResponderITPolicy ResponderID = "it_policy"
)

// KnownResponders returns the closed set of valid responder identifiers.
func KnownResponders() []ResponderID {
	return []ResponderID{ResponderResearch, ResponderHRPolicy, ResponderITPolicy}
}

// Valid reports whether the identifier names a known responder.
func (id ResponderID) Valid() bool {
	switch id {
	case ResponderResearch, ResponderHRPolicy, ResponderITPolicy:
		return true
	default:
		return false
	}
}

// RoutingDecision is the router's verdict for a single question: which
// responders to invoke, why, and how confident the router is.
//
// Invariants: Responders is non-empty, deduplicated, and a subset of
// KnownResponders. The router guarantees this by construction; a decision
// that would violate it degrades to {research}.
type RoutingDecision struct {
	// Responders lists the responders to invoke, in no particular order.
	Responders []ResponderID `json:"responders"`

	// Rationale is the router's brief explanation for the selection.
	Rationale string `json:"rationale"`

	// Confidence is the router's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Fallback is true when the decision came from the static fallback
	// path rather than a successful model call.
	Fallback bool `json:"fallback,omitempty"`
}

// ConfidenceBand buckets the routing confidence for logs and metrics.
// It has no influence on control flow.
func (d *RoutingDecision) ConfidenceBand() string {
	switch {
	case d.Confidence >= 0.8:
		return "HIGH"
	case d.Confidence >= 0.5:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
