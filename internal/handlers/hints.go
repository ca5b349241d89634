// internal/handlers/hints.go
package handlers

import (
	"context"

	"github.com/dropfour/connect4/internal/game"
	"github.com/dropfour/connect4/internal/solver"
)

// Evaluator is the narrow contract with the perfect-play oracle: replay a
// move history, get one score per column for the side to move.
type Evaluator interface {
	Evaluate(ctx context.Context, moves []int) (solver.Analysis, error)
}

// dispatchHint asks the oracle for per-column scores for the player now on
// turn, without blocking the caller. The result is dropped when the solver
// fails or when the match moved past the queried position before it resolved.
func (srv *Server) dispatchHint(m *game.Match) {
	req, ok := m.HintTarget()
	if !ok {
		return
	}
	go func() {
		analysis, err := srv.Solver.Evaluate(context.Background(), req.Moves)
		if err != nil {
			srv.Logger.WithError(err).Debugf("no hint for match %s", m.ID)
			return
		}
		if !m.StillCurrent(req.Version) {
			srv.Logger.Debugf("Dropping stale hint for match %s (version %d)", m.ID, req.Version)
			return
		}
		srv.sendTo(req.PlayerID, hintMessage{Type: "hint", Analysis: analysis})
	}()
}
