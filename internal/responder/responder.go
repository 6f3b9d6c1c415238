// Package responder implements the retrieval-augmented answerers.
//
// Three responders share one pipeline and differ only in their
// retrieval category and system prompt: a general research responder
// that searches all documents, and two specialists scoped to HR and IT
// policy. A responder never returns an error; every failure is folded
// into the ResponderResult so fan-out and synthesis never special-case
// a missing answer.
package responder

import (
	"context"
	"fmt"
	"sort"

	"github.com/policydesk/policydesk/pkg/models"
)

// Responder answers one question within its domain.
type Responder interface {
	// ID is the stable identifier used by routing.
	ID() models.ResponderID

	// Name is the human-readable label used in synthesized output.
	Name() string

	// Description summarizes the responder's domain.
	Description() string

	// Answer processes one question. It never fails outright: errors
	// are captured in the result's Success and Err fields and the
	// Answer field is always non-empty.
	Answer(ctx context.Context, q models.Question) models.ResponderResult
}

// Info describes a registered responder, for listing surfaces.
type Info struct {
	ID          models.ResponderID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
}

// Registry maps responder identifiers to implementations. It is built
// once at startup and read-only afterward, so it is safe for concurrent
// lookups.
type Registry struct {
	byID map[models.ResponderID]Responder
}

// NewRegistry builds a registry. Duplicate identifiers are rejected.
func NewRegistry(responders ...Responder) (*Registry, error) {
	byID := make(map[models.ResponderID]Responder, len(responders))
	for _, r := range responders {
		if _, exists := byID[r.ID()]; exists {
			return nil, fmt.Errorf("duplicate responder id %q", r.ID())
		}
		byID[r.ID()] = r
	}
	return &Registry{byID: byID}, nil
}

// Lookup returns the responder for id, or false when unknown.
func (reg *Registry) Lookup(id models.ResponderID) (Responder, bool) {
	r, ok := reg.byID[id]
	return r, ok
}

// IDs returns the known identifiers in sorted order.
func (reg *Registry) IDs() []models.ResponderID {
	ids := make([]models.ResponderID, 0, len(reg.byID))
	for id := range reg.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// List returns Info for every registered responder, sorted by id.
func (reg *Registry) List() []Info {
	infos := make([]Info, 0, len(reg.byID))
	for _, id := range reg.IDs() {
		r := reg.byID[id]
		infos = append(infos, Info{ID: r.ID(), Name: r.Name(), Description: r.Description()})
	}
	return infos
}
