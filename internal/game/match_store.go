// internal/game/match_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// MatchStore is the in-memory registry of live matches. It owns the canonical
// match lifetime; connection handlers only hold lookup references.
type MatchStore struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches: make(map[uuid.UUID]*Match),
	}
}

func (s *MatchStore) Add(m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
}

func (s *MatchStore) Get(id uuid.UUID) (*Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	return m, ok
}

func (s *MatchStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
}

// ByPlayer returns the match holding a seat for playerID, or nil if none.
func (s *MatchStore) ByPlayer(playerID uuid.UUID) *Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.HasPlayer(playerID) {
			return m
		}
	}
	return nil
}
