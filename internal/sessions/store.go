// Package sessions persists conversation logs.
//
// The pipeline appends a user message before processing and an
// assistant message after; it never reads history during orchestration.
// History exists for the batch evaluation surface, which replays past
// answers through the evaluator.
package sessions

import (
	"context"

	"github.com/policydesk/policydesk/pkg/models"
)

// Store is an append-only message log keyed by session.
//
// Implementations must be safe for concurrent use: multiple in-flight
// queries append to different sessions simultaneously.
type Store interface {
	// AddMessage appends one message to its session's log.
	AddMessage(ctx context.Context, msg models.Message) error

	// History returns the most recent messages for a session in
	// chronological order. limit <= 0 returns everything.
	History(ctx context.Context, sessionID string, limit int) ([]models.Message, error)

	// Close releases backing resources.
	Close() error
}
