package orchestrate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/policydesk/policydesk/internal/generation"
	"github.com/policydesk/policydesk/internal/observability"
	"github.com/policydesk/policydesk/pkg/models"
)

const routerSystemPrompt = `You are a routing assistant responsible for analyzing user queries
and determining which specialist responder(s) should handle them.

Available responders:
1. it_policy - Handles IT policies, security, infrastructure, software, hardware, network, cybersecurity
2. hr_policy - Handles HR policies, benefits, leave, compensation, onboarding, performance reviews, workplace conduct
3. research - Handles general research queries that don't fit specific domains

Your task is to:
1. Analyze the user's query carefully
2. Determine which responder(s) are most appropriate (can be multiple for complex queries)
3. Provide a brief rationale for your decision
4. Assign a confidence score (0-1) to your routing decision

Important:
- You can select MULTIPLE responders if the query spans multiple domains
- For queries clearly about one domain, select only that responder
- For ambiguous queries, default to research
- Higher confidence (>0.8) for clear domain-specific queries
- Lower confidence (<0.5) for ambiguous queries

Respond with ONLY a JSON object in this exact format:
{"responders": ["it_policy"], "rationale": "brief explanation", "confidence": 0.9}`

const routerLenientPrompt = `You are a routing assistant. Analyze the query and respond with:
RESPONDERS: [comma-separated list: it_policy, hr_policy, or research]
RATIONALE: [brief explanation]`

const (
	// lenientConfidence is assigned when the strict parse failed and the
	// plain-text retry succeeded.
	lenientConfidence = 0.5

	// fallbackConfidence is assigned by the static fallback decision.
	fallbackConfidence = 0.3

	// defaultConfidence fills in when the model omits a score.
	defaultConfidence = 0.8
)

// Router decides which responders should answer a question.
//
// Parsing is an ordered list of attempts: strict JSON, then a lenient
// plain-text retry, then a static fallback to the research responder.
// Route never fails; the fallback path is the floor.
type Router struct {
	generator generation.Generator
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewRouter creates a router on the given generator.
func NewRouter(generator generation.Generator, logger *observability.Logger, metrics *observability.Metrics) *Router {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &Router{generator: generator, logger: logger, metrics: metrics}
}

// Route classifies one question.
func (r *Router) Route(ctx context.Context, q models.Question) models.RoutingDecision {
	decision, ok := r.routeStrict(ctx, q.Text)
	if !ok {
		decision, ok = r.routeLenient(ctx, q.Text)
	}
	if !ok {
		decision = models.RoutingDecision{
			Responders: []models.ResponderID{models.ResponderResearch},
			Rationale:  "Error in routing, defaulting to research",
			Confidence: fallbackConfidence,
			Fallback:   true,
		}
		r.metrics.RoutingFallbacks.Inc()
		r.logger.Warn(ctx, "routing failed, using static fallback", "question", q.Text)
	}

	for _, id := range decision.Responders {
		r.metrics.RoutingCounter.WithLabelValues(string(id), decision.ConfidenceBand()).Inc()
	}
	r.logger.Info(ctx, "routed question",
		"responders", respondersString(decision.Responders),
		"confidence", decision.Confidence,
		"band", decision.ConfidenceBand(),
		"fallback", decision.Fallback)
	return decision
}

func (r *Router) routeStrict(ctx context.Context, question string) (models.RoutingDecision, bool) {
	text, err := r.generator.Generate(ctx, routerSystemPrompt, question)
	if err != nil {
		r.logger.Warn(ctx, "strict routing call failed", "error", err)
		return models.RoutingDecision{}, false
	}

	var parsed struct {
		Responders []string `json:"responders"`
		Rationale  string   `json:"rationale"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &parsed); err != nil {
		r.logger.Warn(ctx, "strict routing parse failed", "error", err, "output", text)
		return models.RoutingDecision{}, false
	}

	confidence := defaultConfidence
	if parsed.Confidence != nil {
		confidence = clamp01(*parsed.Confidence)
	}
	return models.RoutingDecision{
		Responders: validateResponders(parsed.Responders),
		Rationale:  parsed.Rationale,
		Confidence: confidence,
	}, true
}

func (r *Router) routeLenient(ctx context.Context, question string) (models.RoutingDecision, bool) {
	text, err := r.generator.Generate(ctx, routerLenientPrompt, question)
	if err != nil {
		r.logger.Warn(ctx, "lenient routing call failed", "error", err)
		return models.RoutingDecision{}, false
	}

	var raw []string
	rationale := "No rationale provided"
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "RESPONDERS:"); ok {
			raw = strings.Split(after, ",")
		} else if after, ok := strings.CutPrefix(line, "RATIONALE:"); ok {
			rationale = strings.TrimSpace(after)
		}
	}
	if len(raw) == 0 {
		r.logger.Warn(ctx, "lenient routing parse failed", "output", text)
		return models.RoutingDecision{}, false
	}

	return models.RoutingDecision{
		Responders: validateResponders(raw),
		Rationale:  rationale,
		Confidence: lenientConfidence,
	}, true
}

// validateResponders lower-cases, trims, drops unknown identifiers, and
// deduplicates. An empty result degrades to the research responder.
func validateResponders(raw []string) []models.ResponderID {
	seen := make(map[models.ResponderID]bool, len(raw))
	out := make([]models.ResponderID, 0, len(raw))
	for _, s := range raw {
		id := models.ResponderID(strings.ToLower(strings.Trim(strings.TrimSpace(s), `"'[]`)))
		if !id.Valid() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return []models.ResponderID{models.ResponderResearch}
	}
	return out
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models add around JSON despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func respondersString(ids []models.ResponderID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
