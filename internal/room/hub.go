// internal/room/hub.go
package room

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
	"github.com/Oxymoron290/Klennedy-May-I/internal/auth"
	"github.com/Oxymoron290/Klennedy-May-I/internal/bot"
	"github.com/Oxymoron290/Klennedy-May-I/internal/game"
	"github.com/Oxymoron290/Klennedy-May-I/internal/logger"
	"github.com/Oxymoron290/Klennedy-May-I/internal/metrics"
	"github.com/Oxymoron290/Klennedy-May-I/internal/models"
)

var (
	ErrNoRoom        = errors.New("room: no such room")
	ErrWrongPassword = errors.New("room: wrong password")
	ErrRoomFull      = errors.New("room: room is full")
	ErrGameStarted   = errors.New("room: game already started")
)

// DeliverFunc hands an event to the transport for one human player.
type DeliverFunc func(playerID uuid.UUID, ev game.GameEvent)

// Options configures the games a hub creates.
type Options struct {
	Rules        engine.HouseRules
	TurnDuration time.Duration
	BotThink     time.Duration
	MaxSeats     int
}

// Room is one table and its bots.
type Room struct {
	ID        string
	Game      *game.MayIGame
	Bots      *bot.Runner
	CreatedAt time.Time

	passwordHash []byte
}

// Do runs fn with the game lock held.
func (r *Room) Do(fn func(g *game.MayIGame)) {
	r.Game.Mu.Lock()
	defer r.Game.Mu.Unlock()
	fn(r.Game)
}

// Summary is the lobby listing entry of a room.
type Summary struct {
	ID       string    `json:"id"`
	HostID   uuid.UUID `json:"hostId"`
	Players  []string  `json:"players"`
	Humans   int       `json:"humans"`
	Bots     int       `json:"bots"`
	Seats    int       `json:"seats"`
	Started  bool      `json:"started"`
	GameOver bool      `json:"gameOver"`
	Round    int       `json:"round"`
	Locked   bool      `json:"locked"`
}

// Hub is the registry of live rooms. Lock order is Hub.mu before a game's
// Mu; game callbacks never take Hub.mu.
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	opts    Options
	deliver DeliverFunc
	botSeq  int
}

// NewHub returns an empty hub. deliver may be nil in tests.
func NewHub(opts Options, deliver DeliverFunc) *Hub {
	if opts.MaxSeats <= 0 || opts.MaxSeats > opts.Rules.MaxPlayers {
		opts.MaxSeats = opts.Rules.MaxPlayers
	}
	return &Hub{rooms: make(map[string]*Room), opts: opts, deliver: deliver}
}

// Join seats user in roomID, creating the room on first join with the given
// password. A player already seated is reconnected instead.
func (h *Hub) Join(roomID string, user *models.User, conn *websocket.Conn, password string) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		var err error
		if r, err = h.createRoom(roomID, password); err != nil {
			return nil, err
		}
	} else if !auth.CheckPassword(r.passwordHash, password) {
		return nil, ErrWrongPassword
	}

	r.Game.Mu.Lock()
	defer r.Game.Mu.Unlock()
	g := r.Game
	if existing := g.Player(user.ID); existing != nil {
		g.HandleReconnect(user.ID, conn)
		return r, nil
	}
	if g.Started() {
		h.dropIfEmpty(r)
		return nil, ErrGameStarted
	}
	if len(g.Players) >= h.opts.MaxSeats {
		return nil, ErrRoomFull
	}
	p := &models.Player{ID: user.ID, Connected: true, Conn: conn, User: user}
	if err := g.AddPlayer(p); err != nil {
		h.dropIfEmpty(r)
		return nil, fmt.Errorf("room: join: %w", err)
	}
	logger.Room(roomID).WithFields(logrus.Fields{"player": user.ID, "name": user.Username}).Info("joined room")
	return r, nil
}

// createRoom registers a new room. Assumes h.mu is held.
func (h *Hub) createRoom(roomID, password string) (*Room, error) {
	var hash []byte
	if password != "" {
		var err error
		if hash, err = auth.HashPassword(password); err != nil {
			return nil, err
		}
	}
	g := game.NewMayIGame(roomID, h.opts.Rules, 0)
	g.TurnDuration = h.opts.TurnDuration
	g.BroadcastFn = func(ev game.GameEvent) {
		for _, p := range g.Players {
			if p.Connected && !p.IsBot {
				h.send(p.ID, ev)
			}
		}
	}
	g.BroadcastToPlayerFn = func(playerID uuid.UUID, ev game.GameEvent) {
		if p := g.Player(playerID); p != nil && !p.IsBot {
			h.send(playerID, ev)
		}
	}
	g.OnGameEnd = func(roomID string, winner uuid.UUID, totals map[uuid.UUID]int) {
		logger.Room(roomID).WithFields(logrus.Fields{"winner": winner, "totals": totals}).Info("game over")
	}

	r := &Room{
		ID:           roomID,
		Game:         g,
		Bots:         bot.NewRunner(g),
		CreatedAt:    time.Now(),
		passwordHash: hash,
	}

	h.rooms[roomID] = r
	metrics.ActiveRooms.Inc()
	logger.Room(roomID).WithField("locked", hash != nil).Info("room created")
	return r, nil
}

func (h *Hub) send(playerID uuid.UUID, ev game.GameEvent) {
	if h.deliver != nil {
		h.deliver(playerID, ev)
	}
}

// Leave marks the player gone. Lobby seats are freed; seats in a running
// game stay for reconnection. The room closes when no human remains.
func (h *Hub) Leave(roomID string, playerID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	r.Game.Mu.Lock()
	defer r.Game.Mu.Unlock()
	r.Game.RemovePlayer(playerID)
	h.dropIfEmpty(r)
}

// dropIfEmpty closes a room with no connected human. Assumes h.mu and the
// room's game lock are held.
func (h *Hub) dropIfEmpty(r *Room) {
	if r.Game.HasConnectedHumans() {
		return
	}
	r.Bots.Stop()
	r.Game.Close()
	delete(h.rooms, r.ID)
	metrics.ActiveRooms.Dec()
	logger.Room(r.ID).Info("room closed")
}

// Get returns a live room.
func (h *Hub) Get(roomID string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	return r, ok
}

// List summarizes all rooms, ordered by id.
func (h *Hub) List() []Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Summary, 0, len(h.rooms))
	for _, r := range h.rooms {
		r.Game.Mu.Lock()
		g := r.Game
		s := Summary{
			ID:       r.ID,
			HostID:   g.HostID(),
			Seats:    h.opts.MaxSeats,
			Started:  g.Started(),
			GameOver: g.GameOver,
			Round:    g.Engine.Round,
			Locked:   r.passwordHash != nil,
		}
		for _, p := range g.Players {
			s.Players = append(s.Players, p.Name())
			if p.IsBot {
				s.Bots++
			} else {
				s.Humans++
			}
		}
		r.Game.Mu.Unlock()
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddBot seats an automated opponent in a room's lobby.
func (h *Hub) AddBot(roomID string, profile bot.Profile) (*models.Player, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return nil, ErrNoRoom
	}
	r.Game.Mu.Lock()
	defer r.Game.Mu.Unlock()
	g := r.Game
	if g.Started() {
		return nil, ErrGameStarted
	}
	if len(g.Players) >= h.opts.MaxSeats {
		return nil, ErrRoomFull
	}

	h.botSeq++
	id := uuid.New()
	p := &models.Player{
		ID:    id,
		IsBot: true,
		User:  &models.User{ID: id, Username: fmt.Sprintf("%s bot %d", profile.Name, r.Bots.Len()+1)},
	}
	if err := g.AddPlayer(p); err != nil {
		return nil, fmt.Errorf("room: add bot: %w", err)
	}
	r.Bots.Add(bot.New(id, profile.WithThink(h.opts.BotThink), time.Now().UnixNano()+int64(h.botSeq)))
	return p, nil
}

// Close shuts every room down.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.rooms {
		r.Game.Mu.Lock()
		r.Bots.Stop()
		r.Game.Close()
		r.Game.Mu.Unlock()
		delete(h.rooms, id)
		metrics.ActiveRooms.Dec()
	}
}
