// internal/game/timer.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
	"github.com/Oxymoron290/Klennedy-May-I/internal/models"
)

// maxTimeoutSteps bounds the actions taken for a player whose timer fired.
const maxTimeoutSteps = 6

// awaitedPlayer returns who the table is waiting on: the next voter while a
// May I request is open, otherwise the turn player.
func (g *MayIGame) awaitedPlayer() (uuid.UUID, bool) {
	if g.Engine.Phase != engine.PhasePlaying {
		return uuid.Nil, false
	}
	if g.Engine.MayI != nil {
		return g.Engine.MayI.NextVoter()
	}
	cur := g.Engine.CurrentPlayer()
	if cur == nil {
		return uuid.Nil, false
	}
	return cur.ID, true
}

// scheduleNextTurnTimer (re)arms the timer for whoever the table waits on.
// Assumes lock is held by caller.
func (g *MayIGame) scheduleNextTurnTimer() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
	if g.TurnDuration <= 0 || g.GameOver {
		return
	}
	awaited, ok := g.awaitedPlayer()
	if !ok {
		return
	}

	curTurnID := g.TurnID
	g.turnTimer = time.AfterFunc(g.TurnDuration, func() {
		go func(expectedTurnID int) {
			g.Mu.Lock()
			defer g.Mu.Unlock()

			if !g.GameOver && g.TurnID == expectedTurnID {
				g.log.WithFields(logrus.Fields{"turn": g.TurnID, "player": awaited}).Info("turn timer fired")
				g.handleTimeout(awaited)
			}
		}(curTurnID)
	})
}

// handleTimeout plays safe moves for a player who ran out of time: a
// pending vote is accepted, and a turn is finished by drawing from the
// stock and throwing away the costliest card.
// Assumes lock is held by caller.
func (g *MayIGame) handleTimeout(playerID uuid.UUID) {
	g.logAction(playerID, "player_timeout", nil)
	for i := 0; i < maxTimeoutSteps; i++ {
		action, ok := FallbackAction(g.Engine, playerID)
		if !ok {
			return
		}
		if err := g.HandlePlayerAction(playerID, action); err != nil {
			g.log.WithError(err).WithField("player", playerID).Warn("timeout action rejected")
			return
		}
		if next, ok := g.awaitedPlayer(); !ok || next != playerID {
			return
		}
	}
}

// FallbackAction returns the conservative move for playerID, if the table
// is waiting on them. Timers and bots share it.
func FallbackAction(e *engine.Game, playerID uuid.UUID) (models.GameAction, bool) {
	if e.Phase != engine.PhasePlaying {
		return models.GameAction{}, false
	}
	if r := e.MayI; r != nil {
		if next, ok := r.NextVoter(); ok && next == playerID {
			return models.GameAction{ActionType: ActionMayIRespond, Payload: map[string]interface{}{
				"requestId": r.ID.String(),
				"accept":    true,
			}}, true
		}
		return models.GameAction{}, false
	}
	cur := e.CurrentPlayer()
	if cur == nil || cur.ID != playerID {
		return models.GameAction{}, false
	}

	switch e.DecisionCtx() {
	case engine.CtxStartTurn:
		return models.GameAction{ActionType: ActionDrawStock}, true
	case engine.CtxCardOnTable:
		if !e.DiscardedThisTurn {
			return models.GameAction{ActionType: ActionDiscardOnTable}, true
		}
		return models.GameAction{ActionType: ActionTakeOnTable}, true
	case engine.CtxPostDraw:
		if c, ok := costliestCard(cur.Hand); ok {
			return models.GameAction{ActionType: ActionDiscard, Payload: map[string]interface{}{"id": c.ID.String()}}, true
		}
		return models.GameAction{ActionType: ActionEndTurn}, true
	case engine.CtxEndTurn:
		return models.GameAction{ActionType: ActionEndTurn}, true
	}
	return models.GameAction{}, false
}

// costliestCard returns the highest-value card, the last one on ties.
func costliestCard(hand []engine.Card) (engine.Card, bool) {
	if len(hand) == 0 {
		return engine.Card{}, false
	}
	best := hand[0]
	for _, c := range hand[1:] {
		if c.Value() >= best.Value() {
			best = c
		}
	}
	return best, true
}
