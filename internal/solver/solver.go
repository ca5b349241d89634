// internal/solver/solver.go
package solver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable wraps every failure mode of the external solver: missing
// binary, non-zero exit, malformed output, timeout. Callers treat hints as
// best-effort and swallow it.
var ErrUnavailable = errors.New("solver unavailable")

// invalidScore is the sentinel the solver prints for a full column.
const invalidScore = -1000

// ColumnScore is the evaluation of a single column for the side to move.
// Score is positive for a win in N plies, negative for a loss, zero for a
// draw under perfect play; it is omitted when the column is full.
type ColumnScore struct {
	Valid bool `json:"valid"`
	Score *int `json:"score,omitempty"`
}

// Analysis holds one ColumnScore per board column.
type Analysis struct {
	Columns [7]ColumnScore `json:"columns"`
}

// Solver runs the external perfect-play oracle as a subprocess, one
// invocation per evaluated position.
type Solver struct {
	Path    string
	Timeout time.Duration
}

// New builds a Solver from the environment: SOLVER_PATH (default
// "./c4solver") and SOLVER_TIMEOUT (default 5s).
func New() *Solver {
	path := os.Getenv("SOLVER_PATH")
	if path == "" {
		path = "./c4solver"
	}
	timeout := 5 * time.Second
	if v := os.Getenv("SOLVER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}
	return &Solver{Path: path, Timeout: timeout}
}

// Position encodes a move history as the solver's wire form: one digit per
// ply, columns numbered 1-7 from the left.
func Position(moves []int) string {
	var sb strings.Builder
	for _, col := range moves {
		sb.WriteByte(byte('1' + col))
	}
	return sb.String()
}

// Evaluate replays the full move history against the oracle and returns the
// per-column continuation scores for the side to move. Any failure is
// reported as ErrUnavailable.
func (s *Solver) Evaluate(ctx context.Context, moves []int) (Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Path, "-a")
	cmd.Stdin = strings.NewReader(Position(moves) + "\n")
	out, err := cmd.Output()
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return parseAnalysis(out)
}

// parseAnalysis reads the solver's "-a" output: the echoed position followed
// by seven per-column scores. A -1000 score or a non-numeric token marks the
// column as unplayable.
func parseAnalysis(out []byte) (Analysis, error) {
	fields := strings.Fields(string(out))
	if len(fields) < 8 {
		return Analysis{}, fmt.Errorf("%w: short output %q", ErrUnavailable, strings.TrimSpace(string(out)))
	}

	var a Analysis
	for i := 0; i < 7; i++ {
		n, err := strconv.Atoi(fields[i+1])
		if err != nil || n == invalidScore {
			continue
		}
		score := n
		a.Columns[i] = ColumnScore{Valid: true, Score: &score}
	}
	return a, nil
}
