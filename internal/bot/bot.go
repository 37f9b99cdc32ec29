// Package bot plays seats automatically through the same action contract
// the websocket clients use.
package bot

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
	"github.com/Oxymoron290/Klennedy-May-I/internal/game"
	"github.com/Oxymoron290/Klennedy-May-I/internal/models"
)

// Bot is one automated seat.
type Bot struct {
	ID      uuid.UUID
	Profile Profile

	rng *rand.Rand
	// lastRequested is the discard this bot last asked May I for, so a
	// refused card is not asked for again.
	lastRequested uuid.UUID
}

// New returns a bot for the seat.
func New(id uuid.UUID, profile Profile, seed int64) *Bot {
	return &Bot{ID: id, Profile: profile, rng: rand.New(rand.NewSource(seed))}
}

// Decide picks the bot's next action, or false when it has nothing to do.
func (b *Bot) Decide(e *engine.Game) (models.GameAction, bool) {
	if e.Phase != engine.PhasePlaying {
		return models.GameAction{}, false
	}

	if r := e.MayI; r != nil {
		if next, ok := r.NextVoter(); ok && next == b.ID {
			deny := b.rng.Float64() < b.Profile.DenyChance
			return models.GameAction{ActionType: game.ActionMayIRespond, Payload: map[string]interface{}{
				"requestId": r.ID.String(),
				"accept":    !deny,
			}}, true
		}
		// Everything else waits for the vote.
		return models.GameAction{}, false
	}

	cur := e.CurrentPlayer()
	if cur.ID != b.ID {
		return b.considerMayI(e)
	}

	switch e.DecisionCtx() {
	case engine.CtxStartTurn:
		if len(e.DiscardPile) > 0 && b.rng.Float64() < b.Profile.DrawDiscardChance {
			return models.GameAction{ActionType: game.ActionDrawDiscard}, true
		}
		return models.GameAction{ActionType: game.ActionDrawStock}, true
	case engine.CtxCardOnTable:
		if e.DiscardedThisTurn {
			return models.GameAction{ActionType: game.ActionTakeOnTable}, true
		}
		idx := b.rng.Intn(len(cur.Hand) + 1)
		return models.GameAction{ActionType: game.ActionTakeOnTable, Payload: map[string]interface{}{
			"index": float64(idx),
		}}, true
	case engine.CtxPostDraw:
		if action, ok := b.meld(e, cur); ok {
			return action, true
		}
	}
	return game.FallbackAction(e, b.ID)
}

// meld tries to go down, or to extend melds once down.
func (b *Bot) meld(e *engine.Game, p *engine.Player) (models.GameAction, bool) {
	if p.MayIRestricted {
		return models.GameAction{}, false
	}
	final := e.IsFinalRound()
	if !e.IsDown(b.ID) {
		specs, ok := FindFoundingMelds(p.Hand, e.Requirement(), final)
		if !ok {
			return models.GameAction{}, false
		}
		melds := make([]interface{}, len(specs))
		for i, s := range specs {
			ids := make([]interface{}, len(s.CardIDs))
			for j, id := range s.CardIDs {
				ids[j] = id.String()
			}
			melds[i] = map[string]interface{}{"type": string(s.Kind), "cardIds": ids}
		}
		return models.GameAction{ActionType: game.ActionSubmitMelds, Payload: map[string]interface{}{"melds": melds}}, true
	}
	meldID, cardID, ok := FindExtension(p.Hand, e.Melds, final)
	if !ok {
		return models.GameAction{}, false
	}
	return models.GameAction{ActionType: game.ActionAddToMeld, Payload: map[string]interface{}{
		"meldId":  meldID.String(),
		"cardIds": []interface{}{cardID.String()},
	}}, true
}

// considerMayI occasionally asks for the top discard out of turn.
func (b *Bot) considerMayI(e *engine.Game) (models.GameAction, bool) {
	top, ok := e.DiscardTop()
	if !ok || top.ID == b.lastRequested || e.IsDown(b.ID) {
		return models.GameAction{}, false
	}
	if b.rng.Float64() >= b.Profile.RequestChance {
		return models.GameAction{}, false
	}
	b.lastRequested = top.ID
	return models.GameAction{ActionType: game.ActionMayI}, true
}

// Runner drives the bots of one game. It hooks MayIGame.OnChange and acts
// after each bot's think delay, under the game lock.
type Runner struct {
	game  *game.MayIGame
	bots  map[uuid.UUID]*Bot
	timer *time.Timer
	log   *logrus.Entry
}

// NewRunner attaches a runner to g. Call with g.Mu held.
func NewRunner(g *game.MayIGame) *Runner {
	r := &Runner{
		game: g,
		bots: make(map[uuid.UUID]*Bot),
		log:  logrus.WithFields(logrus.Fields{"game": g.ID, "room": g.RoomID, "component": "bot"}),
	}
	prev := g.OnChange
	g.OnChange = func() {
		if prev != nil {
			prev()
		}
		r.Schedule()
	}
	return r
}

// Add registers a bot for a seated player. Call with the game lock held.
func (r *Runner) Add(b *Bot) { r.bots[b.ID] = b }

// Len returns the number of bots driven.
func (r *Runner) Len() int { return len(r.bots) }

// Schedule arms the timer for the next bot move, if any bot has one.
// Call with the game lock held.
func (r *Runner) Schedule() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.game.GameOver || r.game.Engine.Phase != engine.PhasePlaying {
		return
	}
	b := r.nextActor()
	if b == nil {
		return
	}
	turnID := r.game.TurnID
	r.timer = time.AfterFunc(b.Profile.Think, func() {
		r.game.Mu.Lock()
		defer r.game.Mu.Unlock()
		if r.game.GameOver || r.game.TurnID != turnID {
			return
		}
		r.Step(b.ID)
	})
}

// nextActor returns the bot the table waits on, or else a bot that may ask
// May I.
func (r *Runner) nextActor() *Bot {
	e := r.game.Engine
	if e.MayI != nil {
		if next, ok := e.MayI.NextVoter(); ok {
			return r.bots[next]
		}
		return nil
	}
	if b, ok := r.bots[e.CurrentPlayer().ID]; ok {
		return b
	}
	for _, p := range e.Players {
		b, ok := r.bots[p.ID]
		if !ok {
			continue
		}
		for _, a := range e.LegalActions(p.ID) {
			if a == engine.ActionRequestMayI {
				return b
			}
		}
	}
	return nil
}

// Step makes one move for the bot. A rejected move is replaced by the
// fallback move. Call with the game lock held.
func (r *Runner) Step(botID uuid.UUID) {
	b, ok := r.bots[botID]
	if !ok {
		return
	}
	action, ok := b.Decide(r.game.Engine)
	if !ok {
		return
	}
	err := r.game.HandlePlayerAction(botID, action)
	if err == nil {
		return
	}
	r.log.WithError(err).WithFields(logrus.Fields{"bot": botID, "action": action.ActionType}).Debug("bot move rejected")
	if fallback, ok := game.FallbackAction(r.game.Engine, botID); ok {
		if err := r.game.HandlePlayerAction(botID, fallback); err != nil {
			r.log.WithError(err).WithField("bot", botID).Warn("bot fallback rejected")
		}
	}
}

// Stop cancels a pending move.
func (r *Runner) Stop() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
