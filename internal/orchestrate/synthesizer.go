package orchestrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/policydesk/policydesk/internal/generation"
	"github.com/policydesk/policydesk/internal/observability"
	"github.com/policydesk/policydesk/pkg/models"
)

const synthesisSystemPrompt = `You are an expert at synthesizing information from multiple sources.
Your task is to combine the following responses from different specialized responders into a single,
coherent, and comprehensive answer to the user's question.

Guidelines:
1. Integrate information from all responses naturally
2. Remove redundancies
3. Maintain accuracy - don't add information not present in the responses
4. Preserve explicit "not found" statements from any response
5. If the question has several parts, organize the answer by sub-question
6. Keep the tone professional and helpful`

const synthesisUserFormat = "User Question: %s\n\nResponder Answers:\n%s\n\nPlease provide a synthesized answer that combines the insights from all responders:"

const (
	// noResultsAnswer is the exact zero-results message; tests and the
	// combine step depend on it verbatim.
	noResultsAnswer = "I apologize, but I couldn't generate a response."

	// PrimaryNone labels a response with no contributing responder.
	PrimaryNone = "None"

	// PrimaryMultiple labels an answer merged from several responders.
	PrimaryMultiple = "Multiple Responders"
)

// Synthesis is a merged answer with its supporting sources.
type Synthesis struct {
	Answer  string
	Primary string
	Sources []models.Fragment
}

// Synthesizer merges responder results for one question into a single
// answer.
type Synthesizer struct {
	generator generation.Generator
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewSynthesizer creates a synthesizer on the given generator.
func NewSynthesizer(generator generation.Generator, logger *observability.Logger, metrics *observability.Metrics) *Synthesizer {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &Synthesizer{generator: generator, logger: logger, metrics: metrics}
}

// Synthesize merges the results for one question.
//
// Zero results yields the fixed apology with no sources. One result
// passes through unchanged. Several results are merged with one
// generation call; if that call fails, the answers are concatenated
// deterministically under responder labels. Sources are concatenated
// across results without deduplication at this stage.
func (s *Synthesizer) Synthesize(ctx context.Context, questionText string, results []models.ResponderResult) Synthesis {
	switch len(results) {
	case 0:
		return Synthesis{
			Answer:  noResultsAnswer,
			Primary: PrimaryNone,
			Sources: []models.Fragment{},
		}
	case 1:
		return Synthesis{
			Answer:  results[0].Answer,
			Primary: results[0].Name,
			Sources: results[0].Sources,
		}
	}

	labeled := make([]string, len(results))
	var sources []models.Fragment
	for i, res := range results {
		labeled[i] = fmt.Sprintf("**%s:**\n%s", res.Name, res.Answer)
		sources = append(sources, res.Sources...)
	}

	answer, err := s.generator.Generate(ctx, synthesisSystemPrompt,
		fmt.Sprintf(synthesisUserFormat, questionText, strings.Join(labeled, "\n\n")))
	if err != nil || strings.TrimSpace(answer) == "" {
		s.metrics.SynthesisFallbacks.Inc()
		s.logger.Warn(ctx, "synthesis generation failed, concatenating answers", "error", err)
		answer = strings.Join(labeled, "\n\n")
	}

	return Synthesis{
		Answer:  answer,
		Primary: PrimaryMultiple,
		Sources: sources,
	}
}

// DedupSources drops duplicate fragments by identifier (or content
// prefix when the identifier is empty), keeping first occurrences.
// Used across multi-question batches where several questions can
// retrieve the same chunks.
func DedupSources(frags []models.Fragment) []models.Fragment {
	seen := make(map[string]bool, len(frags))
	out := make([]models.Fragment, 0, len(frags))
	for _, f := range frags {
		key := f.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}
