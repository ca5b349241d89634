// internal/database/match.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dropfour/connect4/internal/game"
	"github.com/dropfour/connect4/internal/solver"
)

// RecordMatch upserts the terminal outcome of a match. Expected schema:
//
//	CREATE TABLE matches (
//	    id UUID PRIMARY KEY,
//	    player_one UUID NOT NULL,
//	    player_one_name TEXT NOT NULL,
//	    player_two UUID NOT NULL,
//	    player_two_name TEXT NOT NULL,
//	    winner UUID,
//	    status TEXT NOT NULL,
//	    move_count INT NOT NULL,
//	    moves TEXT NOT NULL,
//	    finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
// Safe to call on a nil Recorder.
func (r *Recorder) RecordMatch(ctx context.Context, sum game.Summary) error {
	if r == nil {
		return nil
	}

	var winner any
	if sum.Winner != uuid.Nil {
		winner = sum.Winner
	}

	q := `
		INSERT INTO matches (id, player_one, player_one_name, player_two, player_two_name, winner, status, move_count, moves)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET winner = $6, status = $7, move_count = $8, moves = $9
	`
	_, err := r.pool.Exec(ctx, q,
		sum.ID, sum.PlayerOne, sum.PlayerOneName, sum.PlayerTwo, sum.PlayerTwoName,
		winner, string(sum.Status), len(sum.Moves), solver.Position(sum.Moves),
	)
	if err != nil {
		return fmt.Errorf("insert match result: %w", err)
	}
	return nil
}
