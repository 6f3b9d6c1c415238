// Package retrieval wraps vector similarity search over stored policy
// document chunks.
//
// The adapter returns ranked fragments for a query, optionally filtered
// by document category. Responders post-filter the results by minimum
// content length (see FilterSubstantial) before building prompts.
package retrieval

import (
	"context"

	"github.com/policydesk/policydesk/pkg/models"
)

// SearchRequest describes one similarity search.
type SearchRequest struct {
	// Query is the question text to embed and search for.
	Query string

	// Category optionally restricts results to one document category
	// (e.g. "hr_policy"). Empty means no filter.
	Category string

	// Limit is the maximum number of fragments to return.
	Limit int
}

// Retriever performs semantic search over stored content.
//
// Implementations must be safe for concurrent calls; multiple fan-outs
// from different requests share one Retriever. Results are ordered
// most-similar-first within one call, with no guarantee beyond that.
type Retriever interface {
	Search(ctx context.Context, req SearchRequest) ([]models.Fragment, error)
}

// Embedder converts query text into an embedding vector compatible with
// the stored document embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FilterSubstantial drops fragments shorter than the minimum content
// length. Short chunks are treated as noise (page headers, footers,
// stray page numbers) and never surfaced to a responder.
func FilterSubstantial(frags []models.Fragment) []models.Fragment {
	out := make([]models.Fragment, 0, len(frags))
	for _, f := range frags {
		if f.Substantial() {
			out = append(out, f)
		}
	}
	return out
}

// Truncate returns at most n fragments, preserving order.
func Truncate(frags []models.Fragment, n int) []models.Fragment {
	if n < 0 || len(frags) <= n {
		return frags
	}
	return frags[:n]
}
