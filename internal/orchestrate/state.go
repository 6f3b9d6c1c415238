package orchestrate

import (
	"time"

	"github.com/policydesk/policydesk/pkg/models"
)

// State is the per-request aggregate threaded through the pipeline.
// It is created at request start, owned exclusively by that request's
// ProcessQuery call, and discarded after the response is built. Nothing
// is shared across requests.
type State struct {
	Query     string
	UserID    string
	SessionID string

	// Questions are the split units, in input order.
	Questions []models.Question

	// Routing holds one decision per question, in question order.
	Routing []models.RoutingDecision

	// Results accumulates responder results across fan-outs. The list is
	// append-only; merging partial sets is plain concatenation.
	Results []models.ResponderResult

	FinalAnswer string
	Primary     string
	Sources     []models.Fragment
	Evaluation  models.EvaluationOutcome

	StartedAt time.Time
}

func newState(query, userID, sessionID string) *State {
	return &State{
		Query:     query,
		UserID:    userID,
		SessionID: sessionID,
		StartedAt: time.Now(),
	}
}

// multiQuestion reports whether the splitter marked the input as
// compound. Questions from one input share the same Multi flag, so the
// first one speaks for the batch.
func (s *State) multiQuestion() bool {
	return len(s.Questions) > 0 && s.Questions[0].Multi
}

// successful filters a result set down to the results usable for
// synthesis. Failed results stay in State.Results for observability but
// never feed the final answer.
func successful(results []models.ResponderResult) []models.ResponderResult {
	out := make([]models.ResponderResult, 0, len(results))
	for _, r := range results {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}
