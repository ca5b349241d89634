// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dropfour/connect4/internal/auth"
	"github.com/dropfour/connect4/internal/game"
	"github.com/dropfour/connect4/internal/matchmaker"
	"github.com/dropfour/connect4/internal/middleware"
)

// sessionState is the connection's position in its lifecycle. Transitions:
// Unregistered -> Waiting -> Paired; any state may drop to closed when the
// socket goes away.
type sessionState int

const (
	stateUnregistered sessionState = iota
	stateWaiting
	statePaired
)

// session is the per-connection state machine. Its fields are only touched
// from the connection's own read loop; cross-connection delivery goes through
// the server's connection table.
type session struct {
	srv      *Server
	conn     *websocket.Conn
	logger   *logrus.Entry
	playerID uuid.UUID

	state sessionState
	name  string
	match *game.Match
}

// WSHandler upgrades the HTTP connection to WebSocket and drives the protocol
// for one client: register, matchmaking, moves, hint delivery, and disconnect
// cleanup.
func WSHandler(logger *logrus.Logger, srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The guest cookie has to ride on the handshake response, so resolve
		// the identity before accepting the upgrade.
		playerID, err := ensureGuestID(w, r)
		if err != nil {
			logger.Warnf("Guest identity setup failed: %v", err)
			http.Error(w, "failed to establish session", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		s := &session{
			srv:      srv,
			conn:     c,
			playerID: playerID,
		}
		if !srv.addConn(s) {
			// Another live connection owns this identity; mint a fresh one
			// rather than hijacking it.
			s.playerID = uuid.New()
			srv.addConn(s)
		}
		s.logger = logger.WithField("player", s.playerID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s.readMessages(ctx)

		s.cleanup()
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// ensureGuestID returns the player identity from a valid auth_token cookie,
// or mints a new guest identity and sets the cookie on the handshake.
func ensureGuestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if cookie, err := r.Cookie("auth_token"); err == nil {
		if sub, err := auth.AuthenticateJWT(cookie.Value); err == nil {
			if id, err := uuid.Parse(sub); err == nil {
				return id, nil
			}
		}
	}

	id := uuid.New()
	token, err := auth.CreateJWT(id.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("create guest token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	return id, nil
}

// readMessages continuously reads client messages, decodes them, and routes
// them through the session state machine. It exits on read error, closure, or
// context cancellation; a malformed message only produces an error reply.
func (s *session) readMessages(ctx context.Context) {
	for {
		msgType, data, err := s.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.logger.Info("WebSocket closed normally")
			} else if strings.Contains(err.Error(), "context canceled") {
				s.logger.Info("WebSocket context canceled")
			} else {
				s.logger.Warnf("WebSocket read error: %v (status %d)", err, status)
			}
			return
		}
		if msgType != websocket.MessageText {
			s.logger.Warnf("Ignoring non-text message type %d", msgType)
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warnf("Invalid JSON received: %v. Data: %s", err, string(data))
			s.sendError("Invalid JSON format.")
			continue
		}

		switch msg.Type {
		case "register":
			s.handleRegister(msg)
		case "move":
			s.handleMove(msg)
		default:
			s.sendError(fmt.Sprintf("Unknown message type: %s", msg.Type))
		}
	}
}

// handleRegister moves the connection into the waiting pool, or straight into
// a match when an opponent is already waiting.
func (s *session) handleRegister(msg clientMessage) {
	if s.state != stateUnregistered {
		s.sendError("Already registered.")
		return
	}
	name := strings.TrimSpace(msg.Name)
	if name == "" {
		s.sendError("A display name is required to register.")
		return
	}
	s.name = name

	m, paired := s.srv.Matchmaker.Register(matchmaker.Registrant{
		PlayerID:   s.playerID,
		Name:       name,
		WantsHints: msg.WantsHints,
	})
	if !paired {
		s.state = stateWaiting
		s.logger.Infof("%s waiting for an opponent", name)
		s.send(waitingMessage{Type: "waiting", Message: "Waiting for opponent..."})
		return
	}

	s.state = statePaired
	s.match = m
	s.logger.Infof("%s paired into match %s", name, m.ID)
	s.srv.broadcastState(m, m.Snapshot())
}

// handleMove forwards a drop to the match, broadcasts the resulting snapshot
// to both seats, and kicks off a hint lookup for the player now on turn.
func (s *session) handleMove(msg clientMessage) {
	m := s.currentMatch()
	if m == nil {
		s.sendError("You are not in a match.")
		return
	}
	if msg.Column == nil {
		s.sendError("Move requires a column.")
		return
	}

	snap, err := m.ApplyMove(s.playerID, *msg.Column)
	if err != nil {
		s.sendError(moveErrorText(err))
		return
	}

	s.srv.broadcastState(m, snap)
	s.srv.publishMove(m, s.playerID, *msg.Column)

	if m.Terminal() {
		s.srv.recordResult(m)
		return
	}
	s.srv.dispatchHint(m)
}

// currentMatch resolves the match this connection belongs to. A waiting
// session that was paired by its opponent's register discovers the match here
// and flips to Paired. The registry owns the match; the session only holds a
// lookup reference.
func (s *session) currentMatch() *game.Match {
	if s.match != nil {
		return s.match
	}
	if m := s.srv.Matches.ByPlayer(s.playerID); m != nil {
		s.match = m
		s.state = statePaired
		return m
	}
	return nil
}

// cleanup runs once the read loop has exited: withdraw from the waiting pool,
// or hand the match its disconnect and drop it from the registry once both
// seats are gone.
func (s *session) cleanup() {
	s.srv.removeConn(s)

	if s.state == stateUnregistered {
		return
	}
	if s.state == stateWaiting && s.srv.Matchmaker.Withdraw(s.playerID) {
		s.logger.Info("Withdrawn from waiting pool")
		return
	}

	m := s.currentMatch()
	if m == nil {
		return
	}
	snap, ended, empty := m.HandleDisconnect(s.playerID)
	if ended {
		s.logger.Infof("Left match %s; opponent wins by forfeit", m.ID)
		s.srv.broadcastState(m, snap)
		s.srv.recordResult(m)
	}
	if empty {
		s.srv.Matches.Delete(m.ID)
	}
}

// send writes a message to this connection with a bounded timeout. Writes are
// synchronous so messages produced by one read-loop iteration keep their
// order on the wire.
func (s *session) send(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Errorf("Failed to marshal outbound message: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Warnf("Failed to write message: %v", err)
	}
}

func (s *session) sendError(text string) {
	s.send(errorMessage{Type: "error", Message: text})
}

// moveErrorText maps the move rejection taxonomy to client-facing text.
func moveErrorText(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "Not your turn."
	case errors.Is(err, game.ErrMatchOver):
		return "The match is already over."
	case errors.Is(err, game.ErrInvalidMove):
		return "Invalid move."
	default:
		return "Move rejected."
	}
}
