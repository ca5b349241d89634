// internal/handlers/server.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dropfour/connect4/internal/database"
	"github.com/dropfour/connect4/internal/game"
	"github.com/dropfour/connect4/internal/history"
	"github.com/dropfour/connect4/internal/matchmaker"
	"github.com/dropfour/connect4/internal/solver"
)

// Server holds the process-wide shared state every connection handler needs:
// the match registry, the matchmaker pool, the solver gateway, and the live
// connection table. History and Recorder are optional and may stay nil.
type Server struct {
	Matches    *game.MatchStore
	Matchmaker *matchmaker.Matchmaker
	Solver     Evaluator
	History    *history.Publisher
	Recorder   *database.Recorder
	Logger     *logrus.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]*session
}

func NewServer(logger *logrus.Logger) *Server {
	store := game.NewMatchStore()
	return &Server{
		Matches:    store,
		Matchmaker: matchmaker.New(store),
		Solver:     solver.New(),
		Logger:     logger,
		conns:      make(map[uuid.UUID]*session),
	}
}

// addConn registers a live connection under its player ID. It reports false
// when another connection already owns that identity.
func (srv *Server) addConn(s *session) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if _, taken := srv.conns[s.playerID]; taken {
		return false
	}
	srv.conns[s.playerID] = s
	return true
}

func (srv *Server) removeConn(s *session) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.conns[s.playerID] == s {
		delete(srv.conns, s.playerID)
	}
}

// sendTo delivers a message to the named player's connection, if it is live.
func (srv *Server) sendTo(playerID uuid.UUID, payload interface{}) {
	srv.mu.Lock()
	s := srv.conns[playerID]
	srv.mu.Unlock()
	if s != nil {
		s.send(payload)
	}
}

// broadcastState sends a game_state message carrying snap to both seats of m.
func (srv *Server) broadcastState(m *game.Match, snap game.Snapshot) {
	msg := stateMessage{Type: "game_state", State: snap}
	for _, id := range []string{snap.Player1, snap.Player2} {
		playerID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		srv.sendTo(playerID, msg)
	}
}

// publishMove enqueues the accepted move onto the history queue, off the
// broadcast path.
func (srv *Server) publishMove(m *game.Match, playerID uuid.UUID, column int) {
	if srv.History == nil {
		return
	}
	rec := history.MoveRecord{
		MatchID:   m.ID,
		MoveIndex: m.MoveCount(),
		PlayerID:  playerID,
		Column:    column,
		Timestamp: time.Now().Unix(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.History.PublishMove(ctx, rec)
	}()
}

// recordResult persists the terminal outcome asynchronously so the final
// broadcast is never delayed by the database.
func (srv *Server) recordResult(m *game.Match) {
	if srv.Recorder == nil {
		return
	}
	sum := m.Summary()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Recorder.RecordMatch(ctx, sum); err != nil {
			srv.Logger.WithError(err).Warnf("failed to record result for match %s", sum.ID)
		}
	}()
}
