// internal/game/match.go
package game

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dropfour/connect4/internal/board"
)

// Status is the lifecycle state of a match. Finished and Draw are terminal;
// there is no transition out of them.
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
	StatusDraw     Status = "draw"
)

// Move rejection taxonomy. Each maps to an error reply on the offending
// connection only; none of them mutates match state.
var (
	ErrNotYourTurn = errors.New("not your turn")
	ErrInvalidMove = errors.New("invalid move")
	ErrMatchOver   = errors.New("match is over")
)

// Seat holds one player's slot in a match.
type Seat struct {
	PlayerID   uuid.UUID
	Name       string
	WantsHints bool
	Connected  bool
}

// Snapshot is the full serializable state of a match at a point in time,
// sent to both players after any accepted move. Board row 0 is the bottom
// row; cells are 0 (empty), 1 (player one) or 2 (player two).
type Snapshot struct {
	ID          string  `json:"id"`
	Board       [][]int `json:"board"`
	Player1     string  `json:"player1"`
	Player1Name string  `json:"player1_name"`
	Player2     string  `json:"player2"`
	Player2Name string  `json:"player2_name"`
	CurrentTurn string  `json:"current_turn"`
	Status      Status  `json:"status"`
	Winner      string  `json:"winner,omitempty"`
}

// HintRequest captures the position a hint lookup is for. Version pins the
// move count at dispatch time so a result arriving after the match advanced
// can be discarded.
type HintRequest struct {
	PlayerID uuid.UUID
	Version  int
	Moves    []int
}

// Summary is the terminal outcome handed to the result recorder.
type Summary struct {
	ID            uuid.UUID
	PlayerOne     uuid.UUID
	PlayerOneName string
	PlayerTwo     uuid.UUID
	PlayerTwoName string
	Winner        uuid.UUID
	Status        Status
	Moves         []int
}

// Match owns the authoritative state of one game between two seats. All
// mutation goes through ApplyMove and HandleDisconnect, serialized by the
// match mutex, so exactly one move is processed at a time.
type Match struct {
	ID uuid.UUID

	mu          sync.Mutex
	seats       [2]Seat
	board       board.Board
	currentTurn uuid.UUID
	status      Status
	winner      uuid.UUID
	moves       []int
	version     int
}

// NewMatch creates an active match with playerOne to move first.
func NewMatch(playerOne, playerTwo Seat) *Match {
	playerOne.Connected = true
	playerTwo.Connected = true
	return &Match{
		ID:          uuid.New(),
		seats:       [2]Seat{playerOne, playerTwo},
		currentTurn: playerOne.PlayerID,
		status:      StatusActive,
	}
}

// ApplyMove validates and applies a drop in the given column on behalf of
// playerID. On success the board is mutated, the move history extended, and
// the resulting snapshot returned; any rejection leaves the match untouched.
func (m *Match) ApplyMove(playerID uuid.UUID, column int) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusActive {
		return Snapshot{}, ErrMatchOver
	}
	if playerID != m.currentTurn {
		return Snapshot{}, ErrNotYourTurn
	}

	stone := board.PlayerOne
	if playerID == m.seats[1].PlayerID {
		stone = board.PlayerTwo
	}
	res, err := m.board.Apply(column, stone)
	if err != nil {
		return Snapshot{}, ErrInvalidMove
	}

	m.moves = append(m.moves, column)
	m.version++

	switch {
	case res.Win:
		m.status = StatusFinished
		m.winner = playerID
	case res.Full:
		m.status = StatusDraw
	default:
		m.currentTurn = m.opponentLocked(playerID).PlayerID
	}
	return m.snapshotLocked(), nil
}

// HandleDisconnect marks the seat for playerID as gone. A disconnect during
// an active match ends it in the remaining player's favor; the returned
// snapshot (when ended is true) should be broadcast so the opponent learns
// the peer left. empty reports that both seats are now disconnected and the
// match can be dropped from the registry.
func (m *Match) HandleDisconnect(playerID uuid.UUID) (snap Snapshot, ended, empty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.seats {
		if m.seats[i].PlayerID == playerID {
			m.seats[i].Connected = false
		}
	}
	if m.status == StatusActive {
		m.status = StatusFinished
		m.winner = m.opponentLocked(playerID).PlayerID
		ended = true
	}
	empty = !m.seats[0].Connected && !m.seats[1].Connected
	return m.snapshotLocked(), ended, empty
}

// HasPlayer reports whether playerID occupies one of the two seats.
func (m *Match) HasPlayer(playerID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[0].PlayerID == playerID || m.seats[1].PlayerID == playerID
}

// Snapshot returns the current state for broadcast.
func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// HintTarget reports the player now on turn together with the pinned
// position, when the match is still active and that player asked for hints.
func (m *Match) HintTarget() (HintRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusActive {
		return HintRequest{}, false
	}
	seat := m.seatLocked(m.currentTurn)
	if seat == nil || !seat.WantsHints || !seat.Connected {
		return HintRequest{}, false
	}
	moves := make([]int, len(m.moves))
	copy(moves, m.moves)
	return HintRequest{PlayerID: seat.PlayerID, Version: m.version, Moves: moves}, true
}

// StillCurrent reports whether the match is active and no move has been
// applied since version was captured. Hint results for stale versions are
// dropped instead of broadcast.
func (m *Match) StillCurrent(version int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusActive && m.version == version
}

// Terminal reports whether the match reached Finished or Draw.
func (m *Match) Terminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status != StatusActive
}

// MoveCount returns how many plies have been applied.
func (m *Match) MoveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.moves)
}

// Summary returns the data the result recorder persists.
func (m *Match) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	moves := make([]int, len(m.moves))
	copy(moves, m.moves)
	return Summary{
		ID:            m.ID,
		PlayerOne:     m.seats[0].PlayerID,
		PlayerOneName: m.seats[0].Name,
		PlayerTwo:     m.seats[1].PlayerID,
		PlayerTwoName: m.seats[1].Name,
		Winner:        m.winner,
		Status:        m.status,
		Moves:         moves,
	}
}

func (m *Match) seatLocked(playerID uuid.UUID) *Seat {
	for i := range m.seats {
		if m.seats[i].PlayerID == playerID {
			return &m.seats[i]
		}
	}
	return nil
}

func (m *Match) opponentLocked(playerID uuid.UUID) *Seat {
	if m.seats[0].PlayerID == playerID {
		return &m.seats[1]
	}
	return &m.seats[0]
}

func (m *Match) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          m.ID.String(),
		Board:       m.board.Grid(),
		Player1:     m.seats[0].PlayerID.String(),
		Player1Name: m.seats[0].Name,
		Player2:     m.seats[1].PlayerID.String(),
		Player2Name: m.seats[1].Name,
		CurrentTurn: m.currentTurn.String(),
		Status:      m.status,
	}
	if m.winner != uuid.Nil {
		snap.Winner = m.winner.String()
	}
	return snap
}
