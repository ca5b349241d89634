// internal/matchmaker/matchmaker.go
package matchmaker

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dropfour/connect4/internal/game"
)

// Registrant is a connection waiting to be paired into a match.
type Registrant struct {
	PlayerID   uuid.UUID
	Name       string
	WantsHints bool
}

// Matchmaker pairs registrants strictly first-come-first-served. The waiting
// pool and the dequeue-and-pair step share one mutex, so two concurrent
// registrations can never both claim the same waiting player.
type Matchmaker struct {
	mu      sync.Mutex
	waiting []Registrant
	store   *game.MatchStore
}

func New(store *game.MatchStore) *Matchmaker {
	return &Matchmaker{store: store}
}

// Register pairs r with the oldest waiting registrant, creating a new match
// with the waiting player as player one. When the pool is empty, r is
// enqueued and paired reports false; the caller should tell the client it is
// waiting.
func (mm *Matchmaker) Register(r Registrant) (m *game.Match, paired bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if len(mm.waiting) == 0 {
		mm.waiting = append(mm.waiting, r)
		return nil, false
	}

	first := mm.waiting[0]
	mm.waiting = mm.waiting[1:]

	m = game.NewMatch(seatOf(first), seatOf(r))
	mm.store.Add(m)
	return m, true
}

// Withdraw removes playerID from the waiting pool, reporting whether it was
// still there. A registrant that has already been paired is untouched.
func (mm *Matchmaker) Withdraw(playerID uuid.UUID) bool {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	for i, r := range mm.waiting {
		if r.PlayerID == playerID {
			mm.waiting = append(mm.waiting[:i], mm.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// WaitingCount returns the current pool size.
func (mm *Matchmaker) WaitingCount() int {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return len(mm.waiting)
}

func seatOf(r Registrant) game.Seat {
	return game.Seat{
		PlayerID:   r.PlayerID,
		Name:       r.Name,
		WantsHints: r.WantsHints,
	}
}
