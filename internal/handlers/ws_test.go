// internal/handlers/ws_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropfour/connect4/internal/auth"
	"github.com/dropfour/connect4/internal/game"
	"github.com/dropfour/connect4/internal/solver"
)

// stubEvaluator stands in for the external oracle. Every returned score is
// the length of the evaluated move history, so tests can tell which position
// a hint was computed for. When gate is set, Evaluate blocks until it closes.
type stubEvaluator struct {
	mu    sync.Mutex
	gate  chan struct{}
	calls [][]int
}

func (e *stubEvaluator) Evaluate(ctx context.Context, moves []int) (solver.Analysis, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]int(nil), moves...))
	gate := e.gate
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return solver.Analysis{}, ctx.Err()
		}
	}

	var a solver.Analysis
	for i := range a.Columns {
		score := len(moves)
		a.Columns[i] = solver.ColumnScore{Valid: true, Score: &score}
	}
	return a, nil
}

func (e *stubEvaluator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// serverMessage is a loose decoding envelope for everything the server sends.
type serverMessage struct {
	Type     string           `json:"type"`
	Message  string           `json:"message"`
	State    *game.Snapshot   `json:"state"`
	Analysis *solver.Analysis `json:"analysis"`
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	srv := NewServer(logger)
	srv.Solver = &stubEvaluator{}

	mux := http.NewServeMux()
	mux.Handle("/ws", WSHandler(logger, srv))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func sendJSON(t *testing.T, c *websocket.Conn, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

func readMessage(t *testing.T, c *websocket.Conn) serverMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var msg serverMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func readMessageOfType(t *testing.T, c *websocket.Conn, typ string) serverMessage {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, c)
		if msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %q message within 10 reads", typ)
	return serverMessage{}
}

func register(t *testing.T, c *websocket.Conn, name string, wantsHints bool) {
	t.Helper()
	sendJSON(t, c, map[string]interface{}{"type": "register", "name": name, "wants_hints": wantsHints})
}

func moveMsg(column int) map[string]interface{} {
	return map[string]interface{}{"type": "move", "column": column}
}

// pairClients registers two clients and consumes the waiting notice and both
// initial game_state broadcasts. c1 is player one and moves first.
func pairClients(t *testing.T, c1, c2 *websocket.Conn, hints1, hints2 bool) (s1, s2 game.Snapshot) {
	t.Helper()
	register(t, c1, "alice", hints1)
	msg := readMessage(t, c1)
	require.Equal(t, "waiting", msg.Type)

	register(t, c2, "bob", hints2)
	st1 := readMessageOfType(t, c1, "game_state")
	st2 := readMessageOfType(t, c2, "game_state")
	require.NotNil(t, st1.State)
	require.NotNil(t, st2.State)
	return *st1.State, *st2.State
}

func TestRegisterPairsAndPlaysToWin(t *testing.T) {
	_, ts := newTestServer(t)
	c1 := dialWS(t, ts)
	c2 := dialWS(t, ts)

	snap, snap2 := pairClients(t, c1, c2, false, false)
	assert.Equal(t, snap, snap2, "both seats see the same initial state")
	assert.Equal(t, "alice", snap.Player1Name)
	assert.Equal(t, "bob", snap.Player2Name)
	assert.Equal(t, snap.Player1, snap.CurrentTurn)
	assert.Equal(t, game.StatusActive, snap.Status)

	// Alice takes the bottom row on columns 0-3, Bob stacks on top.
	conns := []*websocket.Conn{c1, c2}
	var last game.Snapshot
	for i, col := range []int{0, 0, 1, 1, 2, 2, 3} {
		sendJSON(t, conns[i%2], moveMsg(col))
		st1 := readMessageOfType(t, c1, "game_state")
		st2 := readMessageOfType(t, c2, "game_state")
		require.Equal(t, st1.State, st2.State)
		last = *st1.State
	}

	assert.Equal(t, game.StatusFinished, last.Status)
	assert.Equal(t, snap.Player1, last.Winner)
	assert.Equal(t, 1, last.Board[0][3])

	// Any further move is rejected without closing the connection.
	sendJSON(t, c2, moveMsg(4))
	msg := readMessageOfType(t, c2, "error")
	assert.Equal(t, "The match is already over.", msg.Message)
}

func TestMoveOutOfTurnRejected(t *testing.T) {
	_, ts := newTestServer(t)
	c1 := dialWS(t, ts)
	c2 := dialWS(t, ts)
	pairClients(t, c1, c2, false, false)

	sendJSON(t, c2, moveMsg(3))
	msg := readMessageOfType(t, c2, "error")
	assert.Equal(t, "Not your turn.", msg.Message)

	// The board is untouched: Alice's move lands on the bottom row.
	sendJSON(t, c1, moveMsg(3))
	st := readMessageOfType(t, c1, "game_state")
	assert.Equal(t, 1, st.State.Board[0][3])
}

func TestMoveBeforePairing(t *testing.T) {
	_, ts := newTestServer(t)
	c1 := dialWS(t, ts)

	register(t, c1, "alice", false)
	require.Equal(t, "waiting", readMessage(t, c1).Type)

	sendJSON(t, c1, moveMsg(0))
	msg := readMessage(t, c1)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "You are not in a match.", msg.Message)
}

func TestMalformedMessageKeepsConnectionOpen(t *testing.T) {
	_, ts := newTestServer(t)
	c1 := dialWS(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c1.Write(ctx, websocket.MessageText, []byte("{not json")))
	msg := readMessage(t, c1)
	assert.Equal(t, "error", msg.Type)

	sendJSON(t, c1, map[string]interface{}{"type": "ahem"})
	msg = readMessage(t, c1)
	assert.Equal(t, "error", msg.Type)

	// Still usable afterwards.
	register(t, c1, "alice", false)
	assert.Equal(t, "waiting", readMessage(t, c1).Type)
}

func TestRegisterTwiceRejected(t *testing.T) {
	_, ts := newTestServer(t)
	c1 := dialWS(t, ts)

	register(t, c1, "alice", false)
	require.Equal(t, "waiting", readMessage(t, c1).Type)

	register(t, c1, "alice-again", false)
	msg := readMessage(t, c1)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Already registered.", msg.Message)
}

func TestDisconnectWhileWaitingWithdraws(t *testing.T) {
	srv, ts := newTestServer(t)
	c1 := dialWS(t, ts)

	register(t, c1, "alice", false)
	require.Equal(t, "waiting", readMessage(t, c1).Type)
	c1.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return srv.Matchmaker.WaitingCount() == 0
	}, 2*time.Second, 10*time.Millisecond, "disconnected registrant must leave the pool")

	// The next registrant is not paired with a ghost.
	c2 := dialWS(t, ts)
	register(t, c2, "bob", false)
	assert.Equal(t, "waiting", readMessage(t, c2).Type)
}

func TestDisconnectNotifiesOpponent(t *testing.T) {
	srv, ts := newTestServer(t)
	c1 := dialWS(t, ts)
	c2 := dialWS(t, ts)
	snap, _ := pairClients(t, c1, c2, false, false)

	c2.Close(websocket.StatusNormalClosure, "")

	st := readMessageOfType(t, c1, "game_state")
	assert.Equal(t, game.StatusFinished, st.State.Status)
	assert.Equal(t, snap.Player1, st.State.Winner, "remaining player wins by forfeit")

	sendJSON(t, c1, moveMsg(0))
	msg := readMessageOfType(t, c1, "error")
	assert.Equal(t, "The match is already over.", msg.Message)

	// Once the last seat leaves, the match is dropped from the registry.
	c1.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool {
		_, ok := srv.Matches.Get(mustParse(t, snap.ID))
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHintDeliveredToPlayerOnTurn(t *testing.T) {
	srv, ts := newTestServer(t)
	ev := &stubEvaluator{}
	srv.Solver = ev

	c1 := dialWS(t, ts)
	c2 := dialWS(t, ts)
	pairClients(t, c1, c2, true, false)

	// Alice moves; Bob is on turn but opted out, so no lookup happens.
	sendJSON(t, c1, moveMsg(0))
	readMessageOfType(t, c1, "game_state")
	readMessageOfType(t, c2, "game_state")
	assert.Equal(t, 0, ev.callCount())

	// Bob moves; Alice is on turn and asked for hints.
	sendJSON(t, c2, moveMsg(1))
	readMessageOfType(t, c2, "game_state")
	hint := readMessageOfType(t, c1, "hint")
	require.NotNil(t, hint.Analysis)
	require.True(t, hint.Analysis.Columns[0].Valid)
	assert.Equal(t, 2, *hint.Analysis.Columns[0].Score, "hint computed for the two-ply position")
}

// TestStaleHintSuppressed pins a hint lookup on a slow solver, advances the
// match past the queried position, and checks the stale result is never
// delivered while a fresh one is.
func TestStaleHintSuppressed(t *testing.T) {
	srv, ts := newTestServer(t)
	gate := make(chan struct{})
	ev := &stubEvaluator{gate: gate}
	srv.Solver = ev

	c1 := dialWS(t, ts)
	c2 := dialWS(t, ts)
	pairClients(t, c1, c2, true, false)

	sendJSON(t, c1, moveMsg(0))
	readMessageOfType(t, c1, "game_state")
	readMessageOfType(t, c2, "game_state")

	// Bob's move dispatches a hint for Alice at two plies; it blocks on the
	// gate while Alice moves again, making that position stale.
	sendJSON(t, c2, moveMsg(1))
	readMessageOfType(t, c1, "game_state")
	readMessageOfType(t, c2, "game_state")
	require.Eventually(t, func() bool { return ev.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	sendJSON(t, c1, moveMsg(2))
	readMessageOfType(t, c1, "game_state")
	readMessageOfType(t, c2, "game_state")
	close(gate)

	// Bob moves once more: Alice's next hint is for the four-ply position.
	sendJSON(t, c2, moveMsg(3))
	readMessageOfType(t, c2, "game_state")
	hint := readMessageOfType(t, c1, "hint")
	require.NotNil(t, hint.Analysis)
	assert.Equal(t, 4, *hint.Analysis.Columns[0].Score, "only the current position's hint arrives")

	// Nothing else shows up: the two-ply hint was dropped.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, _, err := c1.Read(ctx)
	assert.Error(t, err, "no stale hint on the wire")
}

func mustParse(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
