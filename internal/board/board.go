// internal/board/board.go
package board

import "errors"

// Board dimensions and the run length required to win.
const (
	Rows = 6
	Cols = 7

	winLength = 4
)

// Cell is the content of a single board position.
type Cell int

const (
	Empty Cell = iota
	PlayerOne
	PlayerTwo
)

// ErrColumnFull is returned by Apply when the target column has no room.
var ErrColumnFull = errors.New("column is full")

// Board is a plain 6x7 Connect-4 grid. Row 0 is the bottom row, matching the
// wire encoding; a dropped stone settles at the lowest empty row of its
// column. The board knows nothing about turn order or players beyond the two
// stone colors.
type Board struct {
	cells [Rows][Cols]Cell
}

// MoveResult describes the outcome of a single applied drop.
type MoveResult struct {
	Row  int
	Col  int
	Win  bool // the placed stone completed a run of four or more
	Full bool // the board has no room left in any column
}

// HasRoom reports whether col is a legal drop target.
func (b *Board) HasRoom(col int) bool {
	return col >= 0 && col < Cols && b.cells[Rows-1][col] == Empty
}

// Apply drops a stone into col. It returns ErrColumnFull when the column has
// no room; out-of-range columns are treated the same way.
func (b *Board) Apply(col int, stone Cell) (MoveResult, error) {
	if !b.HasRoom(col) {
		return MoveResult{}, ErrColumnFull
	}
	row := 0
	for b.cells[row][col] != Empty {
		row++
	}
	b.cells[row][col] = stone
	return MoveResult{
		Row:  row,
		Col:  col,
		Win:  b.checkWin(row, col, stone),
		Full: b.IsFull(),
	}, nil
}

// IsFull reports whether every column lacks room.
func (b *Board) IsFull() bool {
	for c := 0; c < Cols; c++ {
		if b.cells[Rows-1][c] == Empty {
			return false
		}
	}
	return true
}

// Cell returns the content at (row, col). Row 0 is the bottom row.
func (b *Board) Cell(row, col int) Cell {
	return b.cells[row][col]
}

// checkWin scans the four line directions through the just-placed stone.
// Each direction walks at most three cells either way, so the check is
// constant time per move rather than a full-board scan.
func (b *Board) checkWin(row, col int, stone Cell) bool {
	dirs := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for _, d := range dirs {
		count := 1
		for _, sign := range [2]int{1, -1} {
			r, c := row+d[0]*sign, col+d[1]*sign
			for r >= 0 && r < Rows && c >= 0 && c < Cols && b.cells[r][c] == stone {
				count++
				r += d[0] * sign
				c += d[1] * sign
			}
		}
		if count >= winLength {
			return true
		}
	}
	return false
}

// Grid returns the wire representation: a 6x7 matrix of 0 (empty),
// 1 (player one) or 2 (player two), row 0 at the bottom.
func (b *Board) Grid() [][]int {
	grid := make([][]int, Rows)
	for r := range grid {
		grid[r] = make([]int, Cols)
		for c := 0; c < Cols; c++ {
			grid[r][c] = int(b.cells[r][c])
		}
	}
	return grid
}
