package models

// MinFragmentLength is the minimum content length, in bytes, for a
// retrieved fragment to be surfaced to a responder. Shorter chunks are
// almost always page headers, footers, or stray page numbers and carry
// no answerable content.
const MinFragmentLength = 100

// Fragment is a unit of retrieved content returned by the vector store,
// together with its similarity distance and source metadata.
type Fragment struct {
	// ID uniquely identifies the chunk in the vector store.
	ID string `json:"id"`

	// Content is the chunk text. Invariant: once a fragment reaches a
	// responder, len(Content) >= MinFragmentLength.
	Content string `json:"content"`

	// Metadata carries source information (document category, page,
	// original filename). Responders never cite it in answers.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Distance is the similarity distance reported by the vector store.
	// Lower means more similar; the scale is store-specific.
	Distance float32 `json:"distance"`
}

// Substantial reports whether the fragment carries enough content to be
// worth handing to a responder.
func (f *Fragment) Substantial() bool {
	return f != nil && len(f.Content) >= MinFragmentLength
}

// DedupKey returns a stable key for cross-question source deduplication.
// It prefers the store ID and falls back to a prefix of the content for
// fragments that arrived without one.
func (f *Fragment) DedupKey() string {
	if f.ID != "" {
		return f.ID
	}
	const prefixLen = 80
	if len(f.Content) <= prefixLen {
		return f.Content
	}
	return f.Content[:prefixLen]
}
