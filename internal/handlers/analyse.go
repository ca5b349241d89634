// internal/handlers/analyse.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropfour/connect4/internal/solver"
)

type analyseResponse struct {
	Position string          `json:"position"`
	Analysis solver.Analysis `json:"analysis"`
}

// AnalyseHandler evaluates an arbitrary position (one digit 1-7 per ply,
// columns numbered from the left) via the solver and returns the per-column
// scores as JSON.
func AnalyseHandler(srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pos := strings.TrimPrefix(r.URL.Path, "/analyse/")
		moves, err := parsePosition(pos)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		analysis, err := srv.Solver.Evaluate(r.Context(), moves)
		if err != nil {
			srv.Logger.WithError(err).Warnf("analysis failed for position %q", pos)
			http.Error(w, "analysis unavailable", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(analyseResponse{Position: pos, Analysis: analysis}); err != nil {
			srv.Logger.WithError(err).Warn("failed to encode analysis response")
		}
	}
}

func parsePosition(pos string) ([]int, error) {
	moves := make([]int, 0, len(pos))
	for _, c := range pos {
		if c < '1' || c > '7' {
			return nil, fmt.Errorf("position must only contain digits 1-7")
		}
		moves = append(moves, int(c-'1'))
	}
	return moves, nil
}
