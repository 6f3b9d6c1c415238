package sessions

import (
	"context"
	"sync"

	"github.com/policydesk/policydesk/pkg/models"
)

// MemoryStore keeps session logs in process memory. It is the default
// backend for development and tests; restarts lose everything.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]models.Message)}
}

// AddMessage implements Store.
func (s *MemoryStore) AddMessage(_ context.Context, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[msg.SessionID] = append(s.sessions[msg.SessionID], msg)
	return nil
}

// History implements Store.
func (s *MemoryStore) History(_ context.Context, sessionID string, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.sessions[sessionID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]models.Message, len(log))
	copy(out, log)
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
