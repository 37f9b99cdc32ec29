// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
)

// ObfPlayerState is one seat as seen by any observer.
type ObfPlayerState struct {
	engine.PublicPlayer
	Connected     bool `json:"connected"`
	IsBot         bool `json:"isBot"`
	IsCurrentTurn bool `json:"isCurrentTurn"`
}

// ObfGameState is the table as seen by one observer: the public snapshot
// plus that observer's own cards.
type ObfGameState struct {
	GameID          uuid.UUID              `json:"gameId"`
	RoomID          string                 `json:"roomId"`
	HostID          uuid.UUID              `json:"hostId"`
	Started         bool                   `json:"started"`
	GameOver        bool                   `json:"gameOver"`
	TurnID          int                    `json:"turnId"`
	DecisionContext engine.DecisionContext `json:"decisionContext"`
	TurnSeconds     int                    `json:"turnSeconds"`
	engine.PublicState
	Players   []ObfPlayerState    `json:"players"`
	Self      *engine.PrivateView `json:"self,omitempty"`
	Standings []engine.Standing   `json:"standings"`
}

// GetCurrentObfuscatedGameState builds the state for forUser. Other
// players' hands and on-table cards are never included.
// Assumes the game lock is held by the caller.
func (g *MayIGame) GetCurrentObfuscatedGameState(forUser uuid.UUID) ObfGameState {
	pub := g.Engine.PublicState()
	obf := ObfGameState{
		GameID:          g.ID,
		RoomID:          g.RoomID,
		HostID:          g.HostID(),
		Started:         g.Started(),
		GameOver:        g.GameOver || g.Engine.Phase == engine.PhaseFinished,
		TurnID:          g.TurnID,
		DecisionContext: g.Engine.DecisionCtx(),
		TurnSeconds:     int(g.TurnDuration.Seconds()),
		PublicState:     pub,
		Players:         make([]ObfPlayerState, len(pub.Players)),
		Standings:       g.Engine.Standings(),
	}
	for i, pp := range pub.Players {
		ps := ObfPlayerState{
			PublicPlayer:  pp,
			IsCurrentTurn: pub.Phase == engine.PhasePlaying && pp.ID == pub.CurrentPlayerID,
		}
		if p := g.getPlayerByID(pp.ID); p != nil {
			ps.Connected = p.Connected
			ps.IsBot = p.IsBot
		}
		obf.Players[i] = ps
	}
	if view, ok := g.Engine.PrivateView(forUser); ok {
		obf.Self = &view
	}
	return obf
}

// sendSyncState sends the current state to a single player.
// Assumes lock is held by caller.
func (g *MayIGame) sendSyncState(playerID uuid.UUID) {
	state := g.GetCurrentObfuscatedGameState(playerID)
	g.fireEventToPlayer(playerID, GameEvent{Type: EventPrivateSyncState, State: &state})
}

// broadcastSyncStateToAll sends each connected human their own state.
// Assumes lock is held by caller.
func (g *MayIGame) broadcastSyncStateToAll() {
	if g.BroadcastToPlayerFn == nil {
		g.log.Warn("BroadcastToPlayerFn is nil, cannot broadcast sync state")
		return
	}
	for _, p := range g.Players {
		if p.Connected && !p.IsBot {
			g.sendSyncState(p.ID)
		}
	}
}

// SyncState sends the state to one player on request.
func (g *MayIGame) SyncState(playerID uuid.UUID) { g.sendSyncState(playerID) }
