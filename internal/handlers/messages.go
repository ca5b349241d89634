// internal/handlers/messages.go
package handlers

import (
	"github.com/dropfour/connect4/internal/game"
	"github.com/dropfour/connect4/internal/solver"
)

// clientMessage is the envelope for inbound protocol messages. Name and
// WantsHints apply to "register", Column to "move"; Column is a pointer so a
// missing column is distinguishable from column 0.
type clientMessage struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	WantsHints bool   `json:"wants_hints"`
	Column     *int   `json:"column"`
}

type waitingMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type stateMessage struct {
	Type  string        `json:"type"`
	State game.Snapshot `json:"state"`
}

type hintMessage struct {
	Type     string          `json:"type"`
	Analysis solver.Analysis `json:"analysis"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
