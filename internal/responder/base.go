package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/policydesk/policydesk/internal/generation"
	"github.com/policydesk/policydesk/internal/observability"
	"github.com/policydesk/policydesk/internal/retrieval"
	"github.com/policydesk/policydesk/pkg/models"
)

const (
	// defaultOverFetch is deliberately large: many indexed documents
	// produce tiny header/footer chunks that the minimum-length filter
	// discards, so we over-fetch to still end up with enough material.
	defaultOverFetch = 100

	defaultMaxFragments = 5

	noDocumentsContext = "No relevant documents found."
)

const userPromptFormat = "Context:\n%s\n\nQuestion: %s\n\nProvide a detailed and accurate answer based on the context."

// Deps are the shared collaborators injected into every responder.
type Deps struct {
	Retriever retrieval.Retriever
	Generator generation.Generator
	Logger    *observability.Logger

	// OverFetch is how many fragments to request before length
	// filtering. Zero means the default.
	OverFetch int

	// MaxFragments is how many fragments survive into the prompt.
	// Zero means the default.
	MaxFragments int
}

// profile is what distinguishes one responder from another.
type profile struct {
	id           models.ResponderID
	name         string
	description  string
	category     string // retrieval filter; empty searches everything
	systemPrompt string
}

type responder struct {
	profile
	retriever    retrieval.Retriever
	generator    generation.Generator
	logger       *observability.Logger
	overFetch    int
	maxFragments int
}

func newResponder(p profile, deps Deps) *responder {
	r := &responder{
		profile:      p,
		retriever:    deps.Retriever,
		generator:    deps.Generator,
		logger:       deps.Logger,
		overFetch:    deps.OverFetch,
		maxFragments: deps.MaxFragments,
	}
	if r.overFetch == 0 {
		r.overFetch = defaultOverFetch
	}
	if r.maxFragments == 0 {
		r.maxFragments = defaultMaxFragments
	}
	if r.logger == nil {
		r.logger = observability.NewNopLogger()
	}
	return r
}

func (r *responder) ID() models.ResponderID { return r.id }
func (r *responder) Name() string           { return r.name }
func (r *responder) Description() string    { return r.description }

// Answer implements Responder. Retrieval errors are absorbed (the
// responder proceeds with an empty context); generation errors mark the
// result failed but still carry an apologetic answer.
func (r *responder) Answer(ctx context.Context, q models.Question) models.ResponderResult {
	result := models.ResponderResult{
		Responder: r.id,
		Name:      r.name,
	}

	frags := r.retrieve(ctx, q.Text)
	result.Sources = frags
	result.FragmentCount = len(frags)

	answer, err := r.generator.Generate(ctx, r.systemPrompt, r.userPrompt(q.Text, frags))
	if err != nil {
		r.logger.Error(ctx, "responder generation failed",
			"responder", string(r.id),
			"error", err)
		result.Answer = fmt.Sprintf("I apologize, but I encountered an error processing your query: %v", err)
		result.Err = err.Error()
		return result
	}

	result.Answer = answer
	if strings.TrimSpace(result.Answer) == "" {
		result.Answer = "I apologize, but I couldn't generate a response."
	}
	result.Success = true
	return result
}

func (r *responder) retrieve(ctx context.Context, query string) []models.Fragment {
	frags, err := r.retriever.Search(ctx, retrieval.SearchRequest{
		Query:    query,
		Category: r.category,
		Limit:    r.overFetch,
	})
	if err != nil {
		r.logger.Warn(ctx, "retrieval failed, answering without context",
			"responder", string(r.id),
			"error", err)
		return nil
	}

	substantial := retrieval.FilterSubstantial(frags)
	kept := retrieval.Truncate(substantial, r.maxFragments)

	r.logger.Debug(ctx, "retrieved fragments",
		"responder", string(r.id),
		"fetched", len(frags),
		"substantial", len(substantial),
		"kept", len(kept))
	if len(kept) < r.maxFragments {
		r.logger.Warn(ctx, "fewer substantial fragments than requested",
			"responder", string(r.id),
			"kept", len(kept),
			"wanted", r.maxFragments)
	}
	return kept
}

// userPrompt renders fragments as numbered sources. Document names are
// never included so the model cannot cite them.
func (r *responder) userPrompt(query string, frags []models.Fragment) string {
	context := noDocumentsContext
	if len(frags) > 0 {
		parts := make([]string, len(frags))
		for i, f := range frags {
			parts[i] = fmt.Sprintf("[Source %d]\n%s\n", i+1, f.Content)
		}
		context = strings.Join(parts, "\n")
	}
	return fmt.Sprintf(userPromptFormat, context, query)
}
