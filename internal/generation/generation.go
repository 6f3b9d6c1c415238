// Package generation abstracts the text generation backend used by the
// router, responders, synthesizer, and model-assisted evaluator.
//
// Every call is treated as potentially slow (hundreds of milliseconds to
// seconds) and potentially failing; callers own their degradation paths.
package generation

import "context"

// Generator produces text from a system instruction and a user prompt.
//
// Implementations must be safe for concurrent use: multiple in-flight
// fan-outs from different requests share one Generator without
// per-request locking.
type Generator interface {
	// Generate performs one completion call. It honors ctx cancellation
	// and returns an error for network, auth, rate-limit, and timeout
	// failures.
	Generate(ctx context.Context, system, user string) (string, error)

	// Name returns the provider name for logs and metrics.
	Name() string
}
