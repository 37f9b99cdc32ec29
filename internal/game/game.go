// internal/game/game.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
	"github.com/Oxymoron290/Klennedy-May-I/internal/cache"
	"github.com/Oxymoron290/Klennedy-May-I/internal/database"
	"github.com/Oxymoron290/Klennedy-May-I/internal/logger"
	"github.com/Oxymoron290/Klennedy-May-I/internal/metrics"
	"github.com/Oxymoron290/Klennedy-May-I/internal/models"
)

// OnGameEndFunc is called once when a game finishes, with the room id, the
// leader (uuid.Nil on a tie) and the final totals.
type OnGameEndFunc func(roomID string, winner uuid.UUID, totals map[uuid.UUID]int)

// GameEventType names an event sent to clients over the socket.
type GameEventType string

// Events prefixed private_ go to one player only.
const (
	EventPlayerJoined      GameEventType = "player_joined"
	EventPlayerLeft        GameEventType = "player_left"
	EventGameStart         GameEventType = "game_start"
	EventRoundStart        GameEventType = "game_round_start"
	EventPrivateHand       GameEventType = "private_hand"
	EventPlayerDrawStock   GameEventType = "player_draw_stock"
	EventPrivateDrawStock  GameEventType = "private_draw_stock"
	EventPlayerDrawDiscard GameEventType = "player_draw_discard"
	EventStockRecycled     GameEventType = "game_stock_recycled"
	EventPlayerKeepCard    GameEventType = "player_keep_card"
	EventPlayerDiscard     GameEventType = "player_discard"
	EventPlayerMelds       GameEventType = "player_melds"
	EventPlayerMeldExtend  GameEventType = "player_meld_extend"
	EventMayIRequest       GameEventType = "may_i_request"
	EventMayINextVoter     GameEventType = "may_i_next_voter"
	EventMayIResponse      GameEventType = "may_i_response"
	EventMayIResolved      GameEventType = "may_i_resolved"
	EventPrivateMayICards  GameEventType = "private_may_i_cards"
	EventMayICancelled     GameEventType = "may_i_cancelled"
	EventGamePlayerTurn    GameEventType = "game_player_turn"
	EventRoundEnd          GameEventType = "game_round_end"
	EventGameEnd           GameEventType = "game_end"
	EventPrivateSyncState  GameEventType = "private_sync_state"
	EventPrivateActionFail GameEventType = "private_action_fail"
)

// EventUser identifies the acting player of an event.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// GameEvent is the envelope for everything the server pushes to clients.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *ObfGameState          `json:"state,omitempty"`
}

// MayIGame is one live table: the engine plus the seats, sockets and
// timers around it. Exported methods other than NewMayIGame expect the
// caller to hold Mu.
type MayIGame struct {
	ID     uuid.UUID
	RoomID string

	Rules  engine.HouseRules
	Engine *engine.Game

	Players []*models.Player

	// TurnID increments on every accepted action; timers compare it to
	// detect a stale firing.
	TurnID       int
	TurnDuration time.Duration
	turnTimer    *time.Timer
	actionIndex  int

	GameOver bool

	lastSeen map[uuid.UUID]time.Time
	Mu       sync.Mutex

	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnGameEnd           OnGameEndFunc

	// OnChange runs after every accepted action, with Mu held. Bot runners
	// use it to schedule their next move.
	OnChange func()

	log *logrus.Entry
}

// NewMayIGame creates a lobby-phase game. The seed drives the engine's
// shuffles; zero picks one from the clock.
func NewMayIGame(roomID string, rules engine.HouseRules, seed int64) *MayIGame {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	id := uuid.New()
	return &MayIGame{
		ID:       id,
		RoomID:   roomID,
		Rules:    rules,
		Engine:   engine.NewGame(rules, seed),
		lastSeen: make(map[uuid.UUID]time.Time),
		log:      logger.Game(id).WithField("room", roomID),
	}
}

// HostID returns the first human seat, who may start the game.
func (g *MayIGame) HostID() uuid.UUID {
	for _, p := range g.Players {
		if !p.IsBot {
			return p.ID
		}
	}
	return uuid.Nil
}

// Started reports whether play has begun.
func (g *MayIGame) Started() bool { return g.Engine.Phase != engine.PhaseLobby }

// AddPlayer seats a new player in the lobby, or marks a returning player as
// reconnected.
func (g *MayIGame) AddPlayer(p *models.Player) error {
	if existing := g.getPlayerByID(p.ID); existing != nil {
		g.HandleReconnect(p.ID, p.Conn)
		return nil
	}
	if err := g.Engine.AddPlayer(p.ID, p.Name()); err != nil {
		g.log.WithField("player", p.ID).WithError(err).Info("seat refused")
		if p.Conn != nil {
			p.Conn.Close(websocket.StatusPolicyViolation, "cannot join: "+err.Error())
		}
		return err
	}
	if p.IsBot {
		p.Connected = true
	}
	g.Players = append(g.Players, p)
	g.lastSeen[p.ID] = time.Now()
	g.log.WithFields(logrus.Fields{"player": p.ID, "name": p.Name(), "bot": p.IsBot}).Info("player added")
	g.logAction(p.ID, "player_add", map[string]interface{}{"username": p.Name(), "bot": p.IsBot})

	g.fireEvent(GameEvent{
		Type:    EventPlayerJoined,
		User:    &EventUser{ID: p.ID},
		Payload: map[string]interface{}{"username": p.Name(), "isBot": p.IsBot},
	})
	g.broadcastSyncStateToAll()
	return nil
}

// RemovePlayer takes a seat away before the game starts. After the start
// a leaving player is treated as disconnected.
func (g *MayIGame) RemovePlayer(playerID uuid.UUID) {
	if g.Started() {
		g.HandleDisconnect(playerID)
		return
	}
	if err := g.Engine.RemovePlayer(playerID); err != nil {
		return
	}
	for i, p := range g.Players {
		if p.ID == playerID {
			g.Players = append(g.Players[:i:i], g.Players[i+1:]...)
			break
		}
	}
	delete(g.lastSeen, playerID)
	g.logAction(playerID, "player_remove", nil)
	g.fireEvent(GameEvent{Type: EventPlayerLeft, User: &EventUser{ID: playerID}})
	g.broadcastSyncStateToAll()
}

// StartGame deals the first round without the host check applied to
// action_start_game.
func (g *MayIGame) StartGame() error {
	if _, err := g.Engine.StartGame(); err != nil {
		return err
	}
	g.announceStart()
	g.logAction(uuid.Nil, "game_start", nil)
	g.afterEngineChange()
	return nil
}

// announceStart tells the table the game has begun. The engine's own
// game_started event is dropped in favor of this one.
func (g *MayIGame) announceStart() {
	g.log.WithField("players", len(g.Players)).Info("game started")
	g.fireEvent(GameEvent{Type: EventGameStart, Payload: map[string]interface{}{
		"players":     len(g.Players),
		"totalRounds": g.Engine.TotalRounds(),
	}})
}

// afterEngineChange publishes everything an accepted engine call produced
// and moves the session forward.
func (g *MayIGame) afterEngineChange() {
	g.TurnID++
	g.emitEngineEvents(g.Engine.DrainEvents())
	if g.Engine.Phase == engine.PhaseFinished {
		g.EndGame()
		return
	}
	g.broadcastSyncStateToAll()
	g.scheduleNextTurnTimer()
	if g.OnChange != nil {
		g.OnChange()
	}
}

// fireEvent broadcasts an event to all connected players.
func (g *MayIGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	} else {
		g.log.WithField("type", ev.Type).Warn("BroadcastFn is nil, cannot broadcast event")
	}
}

// fireEventToPlayer sends an event to one connected player.
func (g *MayIGame) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn == nil {
		g.log.WithField("type", ev.Type).Warn("BroadcastToPlayerFn is nil, cannot send private event")
		return
	}
	if p := g.getPlayerByID(playerID); p != nil && p.Connected {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// HandleDisconnect marks a player as disconnected. The turn timer keeps
// their seat moving.
func (g *MayIGame) HandleDisconnect(playerID uuid.UUID) {
	p := g.getPlayerByID(playerID)
	if p == nil {
		g.log.WithField("player", playerID).Warn("disconnected player not found")
		return
	}
	if !p.Connected {
		return
	}
	p.Connected = false
	p.Conn = nil
	g.log.WithField("player", playerID).Info("player disconnected")
	g.logAction(playerID, "player_disconnect", nil)
	g.fireEvent(GameEvent{Type: EventPlayerLeft, User: &EventUser{ID: playerID}, Payload: map[string]interface{}{"disconnected": true}})
	g.broadcastSyncStateToAll()
	g.scheduleNextTurnTimer()
}

// HandleReconnect marks a player as connected and sends them the state.
func (g *MayIGame) HandleReconnect(playerID uuid.UUID, conn *websocket.Conn) {
	p := g.getPlayerByID(playerID)
	if p == nil {
		g.logAction(playerID, "player_reconnect_fail", map[string]interface{}{"reason": "player not found"})
		if conn != nil {
			conn.Close(websocket.StatusPolicyViolation, "You are not seated in this game.")
		}
		return
	}
	p.Connected = true
	p.Conn = conn
	g.lastSeen[playerID] = time.Now()
	g.log.WithField("player", playerID).Info("player reconnected")
	g.logAction(playerID, "player_reconnect", map[string]interface{}{"username": p.Name()})
	g.broadcastSyncStateToAll()
	g.scheduleNextTurnTimer()
}

// countConnectedHumans returns the number of connected human seats.
func (g *MayIGame) countConnectedHumans() int {
	n := 0
	for _, p := range g.Players {
		if p.Connected && !p.IsBot {
			n++
		}
	}
	return n
}

// HasConnectedHumans reports whether any human is still at the table.
func (g *MayIGame) HasConnectedHumans() bool { return g.countConnectedHumans() > 0 }

// EndGame finalizes a finished game: stops timers, persists the standings
// and triggers OnGameEnd.
func (g *MayIGame) EndGame() {
	if g.GameOver {
		return
	}
	g.GameOver = true
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}

	standings := g.Engine.Standings()
	totals := make(map[uuid.UUID]int, len(standings))
	var winner uuid.UUID
	leaders := 0
	for _, s := range standings {
		totals[s.PlayerID] = s.Total
		if s.Leader {
			leaders++
			winner = s.PlayerID
		}
	}
	if leaders != 1 {
		winner = uuid.Nil
	}

	metrics.GamesCompleted.Inc()
	g.logAction(uuid.Nil, string(EventGameEnd), map[string]interface{}{"totals": totals, "winner": winner})
	g.persistFinalGameState(standings, winner)
	g.broadcastSyncStateToAll()

	if g.OnGameEnd != nil {
		g.OnGameEnd(g.RoomID, winner, totals)
	}
	g.log.WithFields(logrus.Fields{"winner": winner, "totals": totals}).Info("game ended")
}

// Close stops the turn timer of an abandoned game.
// Assumes lock is held by caller.
func (g *MayIGame) Close() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
	g.OnChange = nil
}

// persistFinalGameState stores the final standings.
func (g *MayIGame) persistFinalGameState(standings []engine.Standing, winner uuid.UUID) {
	if database.DB == nil {
		return
	}
	snapshot := map[string]interface{}{
		"standings": standings,
		"rounds":    g.Engine.TotalRounds(),
	}
	go func(gameID uuid.UUID, roomID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreFinalGameState(ctx, gameID, roomID, winner, snapshot); err != nil {
			logrus.WithError(err).WithField("game", gameID).Error("persist final game state")
		}
	}(g.ID, g.RoomID)
}

// persistRoundResult stores the scores of a finished round.
func (g *MayIGame) persistRoundResult(round int, scores map[uuid.UUID]int) {
	if database.DB == nil {
		return
	}
	go func(gameID uuid.UUID) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreRoundResult(ctx, gameID, round, scores); err != nil {
			logrus.WithError(err).WithField("game", gameID).Error("persist round result")
		}
	}(g.ID)
}

// getPlayerByID finds a seat by player id.
func (g *MayIGame) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// Player returns the seat for playerID, or nil.
func (g *MayIGame) Player(playerID uuid.UUID) *models.Player { return g.getPlayerByID(playerID) }

// logAction sends an action record to the Redis history queue.
func (g *MayIGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	if cache.Rdb == nil {
		return
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"game": rec.GameID, "action": rec.ActionType}).Warn("publish game action")
		}
	}(record)
}
