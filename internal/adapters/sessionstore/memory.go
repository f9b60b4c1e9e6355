// Package sessionstore provides session storage adapters.
// Adapters implement ports.SessionStore; the destructive reset clears them.
package sessionstore

import (
	"context"
	"sync"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
)

// InMemoryStore keeps transcripts for the life of the process.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]entities.DisplayEvent // sessionID -> events
}

// NewInMemoryStore creates a new in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string][]entities.DisplayEvent),
	}
}

// Append records one displayed event.
func (s *InMemoryStore) Append(ctx context.Context, sessionID string, event entities.DisplayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], event)
	return nil
}

// History returns a copy of a session's events.
func (s *InMemoryStore) History(ctx context.Context, sessionID string) ([]entities.DisplayEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.sessions[sessionID]
	out := make([]entities.DisplayEvent, len(events))
	copy(out, events)
	return out, nil
}

// Clear removes all sessions.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string][]entities.DisplayEvent)
	return nil
}

// Close is a no-op; it lets callers treat every store alike.
func (s *InMemoryStore) Close() error {
	return nil
}
