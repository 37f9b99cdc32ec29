package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Oxymoron290/Klennedy-May-I/internal/bot"
	"github.com/Oxymoron290/Klennedy-May-I/internal/game"
	"github.com/Oxymoron290/Klennedy-May-I/internal/metrics"
	"github.com/Oxymoron290/Klennedy-May-I/internal/models"
	"github.com/Oxymoron290/Klennedy-May-I/internal/room"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
	maxRoomID    = 32
)

// client is one live socket. send is never closed; done ends the writer.
type client struct {
	playerID uuid.UUID
	roomID   string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
}

// deliver queues an event for a connected player. It is called with a
// game lock held, so it never blocks: a full buffer drops the event and
// the client catches up on the next sync state.
func (s *Server) deliver(playerID uuid.UUID, ev game.GameEvent) {
	s.mu.RLock()
	c := s.clients[playerID]
	s.mu.RUnlock()
	if c == nil {
		return
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).WithField("type", ev.Type).Error("encode game event")
		return
	}
	select {
	case c.send <- raw:
	default:
		logrus.WithFields(logrus.Fields{"player": playerID, "type": ev.Type}).Warn("send buffer full, event dropped")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, req *http.Request) {
	user, err := s.issuer.Parse(bearerToken(req))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}
	query := req.URL.Query()
	roomID := query.Get("room")
	if roomID == "" || len(roomID) > maxRoomID {
		writeError(w, http.StatusBadRequest, "room must be 1-32 characters")
		return
	}

	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns:     s.origins,
		InsecureSkipVerify: s.dev,
	})
	if err != nil {
		metrics.HTTPRequests.WithLabelValues("/ws", "error").Inc()
		logrus.WithError(err).Warn("websocket accept")
		return
	}
	metrics.HTTPRequests.WithLabelValues("/ws", strconv.Itoa(http.StatusSwitchingProtocols)).Inc()

	cl := &client{
		playerID: user.ID,
		roomID:   roomID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
	s.register(cl)
	entry := logrus.WithFields(logrus.Fields{"player": user.ID, "room": roomID})

	r, err := s.hub.Join(roomID, user, conn, query.Get("password"))
	if err != nil {
		s.unregister(cl)
		entry.WithError(err).Info("join refused")
		conn.Close(websocket.StatusPolicyViolation, joinRefusal(err))
		return
	}
	entry.Info("client connected")

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	go cl.writeLoop(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			cl.sendError("malformed message")
			continue
		}
		s.handleMessage(cl, r, user, msg)
	}

	close(cl.done)
	if s.unregister(cl) {
		s.hub.Leave(roomID, user.ID)
	}
	entry.Info("client disconnected")
}

// handleMessage applies one inbound envelope.
func (s *Server) handleMessage(cl *client, r *room.Room, user *models.User, msg Envelope) {
	switch msg.Type {
	case MsgPing:
		cl.sendJSON(Envelope{Type: MsgPong})
	case MsgSync:
		r.Do(func(g *game.MayIGame) { g.SyncState(user.ID) })
	case MsgAddBot:
		var isHost bool
		r.Do(func(g *game.MayIGame) { isHost = g.HostID() == user.ID })
		if !isHost {
			cl.sendError("only the host can add bots")
			return
		}
		name, _ := msg.Payload["profile"].(string)
		profile, ok := bot.ProfileByName(name)
		if !ok {
			cl.sendError("unknown bot profile")
			return
		}
		if _, err := s.hub.AddBot(r.ID, profile); err != nil {
			cl.sendError(err.Error())
		}
	default:
		r.Do(func(g *game.MayIGame) {
			// Rejections reach the player as private_action_fail.
			_ = g.HandlePlayerAction(user.ID, models.GameAction{ActionType: msg.Type, Payload: msg.Payload})
		})
	}
}

// register installs the client, replacing an older socket of the same
// player.
func (s *Server) register(cl *client) {
	s.mu.Lock()
	old := s.clients[cl.playerID]
	s.clients[cl.playerID] = cl
	s.mu.Unlock()
	if old != nil {
		old.conn.Close(websocket.StatusPolicyViolation, "connected from another session")
	}
}

// unregister removes the client if it is still the current one for its
// player, and reports whether it was.
func (s *Server) unregister(cl *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[cl.playerID] != cl {
		return false
	}
	delete(s.clients, cl.playerID)
	return true
}

func (cl *client) writeLoop(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case raw := <-cl.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := cl.conn.Write(wctx, websocket.MessageText, raw)
			cancel()
			if err != nil {
				return
			}
		case <-ping.C:
			if err := cl.conn.Ping(ctx); err != nil {
				return
			}
		case <-cl.done:
			cl.conn.Close(websocket.StatusNormalClosure, "bye")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (cl *client) sendJSON(v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case cl.send <- raw:
	default:
	}
}

func (cl *client) sendError(message string) {
	cl.sendJSON(Envelope{Type: MsgError, Payload: map[string]interface{}{"message": message}})
}

// writeError answers a refused handshake with a JSON error body.
func writeError(w http.ResponseWriter, code int, message string) {
	metrics.HTTPRequests.WithLabelValues("/ws", strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func joinRefusal(err error) string {
	switch {
	case errors.Is(err, room.ErrWrongPassword):
		return "wrong password"
	case errors.Is(err, room.ErrRoomFull):
		return "room is full"
	case errors.Is(err, room.ErrGameStarted):
		return "game already started"
	}
	return "cannot join room"
}
