// internal/game/actions.go
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
	"github.com/Oxymoron290/Klennedy-May-I/internal/metrics"
	"github.com/Oxymoron290/Klennedy-May-I/internal/models"
)

// Client action names.
const (
	ActionStartGame      = "action_start_game"
	ActionDrawStock      = "action_draw_stock"
	ActionDrawDiscard    = "action_draw_discard"
	ActionTakeOnTable    = "action_take_on_table"
	ActionDiscardOnTable = "action_discard_on_table"
	ActionDiscard        = "action_discard"
	ActionSubmitMelds    = "action_submit_melds"
	ActionAddToMeld      = "action_add_to_meld"
	ActionMayI           = "action_may_i"
	ActionMayIRespond    = "action_may_i_respond"
	ActionMayICancel     = "action_may_i_cancel"
	ActionEndTurn        = "action_end_turn"
)

// ErrBadPayload is returned when an action's payload cannot be parsed.
var ErrBadPayload = errors.New("game: bad action payload")

// ErrNotHost is returned when someone other than the host starts the game.
var ErrNotHost = errors.New("game: only the host can start the game")

// ErrUnknownAction is returned for action names the server does not know.
var ErrUnknownAction = errors.New("game: unknown action")

// ErrGameOver is returned for actions sent after the game ended.
var ErrGameOver = errors.New("game: game is over")

// HandlePlayerAction routes an inbound action to the engine. A rejected
// action leaves the game unchanged and sends private_action_fail to the
// player; the error is also returned to the caller.
// Assumes lock is held by the caller.
func (g *MayIGame) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) error {
	entry := g.log.WithFields(logrus.Fields{"player": playerID, "action": action.ActionType})
	if g.GameOver {
		entry.Debug("action ignored, game over")
		g.failAction(playerID, action.ActionType, ErrGameOver)
		return ErrGameOver
	}
	if g.getPlayerByID(playerID) == nil {
		entry.Warn("action from unseated player")
		return engine.ErrOwnership
	}
	if action.Payload == nil {
		action.Payload = map[string]interface{}{}
	}

	err := g.dispatch(playerID, action)
	if err != nil {
		entry.WithError(err).Debug("action rejected")
		g.failAction(playerID, action.ActionType, err)
		return err
	}

	metrics.ActionsTotal.WithLabelValues(action.ActionType, "ok").Inc()
	g.logAction(playerID, action.ActionType, action.Payload)
	g.lastSeen[playerID] = time.Now()
	g.afterEngineChange()
	return nil
}

// dispatch performs the action on the engine.
func (g *MayIGame) dispatch(playerID uuid.UUID, action models.GameAction) error {
	p := action.Payload
	var err error
	switch action.ActionType {
	case ActionStartGame:
		if playerID != g.HostID() {
			return ErrNotHost
		}
		if _, err = g.Engine.StartGame(); err == nil {
			g.announceStart()
		}
	case ActionDrawStock:
		_, err = g.Engine.DrawFromStock(playerID)
	case ActionDrawDiscard:
		_, err = g.Engine.DrawFromDiscard(playerID)
	case ActionTakeOnTable:
		idx, perr := parseOptionalIndex(p, "index")
		if perr != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, perr)
		}
		_, err = g.Engine.TakeCardOnTable(playerID, idx)
	case ActionDiscardOnTable:
		_, err = g.Engine.DiscardCardOnTable(playerID)
	case ActionDiscard:
		cardID, perr := parseUUIDField(p, "id")
		if perr != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, perr)
		}
		_, err = g.Engine.Discard(playerID, cardID)
	case ActionSubmitMelds:
		specs, perr := parseMeldSpecs(p)
		if perr != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, perr)
		}
		_, err = g.Engine.SubmitMelds(playerID, specs)
	case ActionAddToMeld:
		meldID, perr := parseUUIDField(p, "meldId")
		if perr != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, perr)
		}
		ids, perr := parseUUIDList(p["cardIds"], "cardIds")
		if perr != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, perr)
		}
		_, err = g.Engine.AddToMeld(playerID, meldID, ids)
	case ActionMayI:
		_, err = g.Engine.RequestMayI(playerID)
	case ActionMayIRespond:
		reqID, perr := parseUUIDField(p, "requestId")
		if perr != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, perr)
		}
		accept, ok := p["accept"].(bool)
		if !ok {
			return fmt.Errorf("%w: missing \"accept\"", ErrBadPayload)
		}
		_, err = g.Engine.RespondToMayI(playerID, reqID, accept)
	case ActionMayICancel:
		reqID, perr := parseUUIDField(p, "requestId")
		if perr != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, perr)
		}
		_, err = g.Engine.CancelMayI(playerID, reqID)
	case ActionEndTurn:
		_, err = g.Engine.EndTurn(playerID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action.ActionType)
	}
	return err
}

// failAction reports a rejected action to the player.
func (g *MayIGame) failAction(playerID uuid.UUID, actionType string, err error) {
	kind := "invalid"
	var re *engine.RuleError
	switch {
	case errors.As(err, &re):
		kind = string(re.Kind)
	case errors.Is(err, ErrBadPayload):
		kind = "bad_payload"
	case errors.Is(err, ErrNotHost):
		kind = "not_host"
	case errors.Is(err, ErrUnknownAction):
		kind = "unknown_action"
	case errors.Is(err, ErrGameOver):
		kind = "game_over"
	}
	metrics.ActionsTotal.WithLabelValues(actionType, kind).Inc()
	g.fireEventToPlayer(playerID, GameEvent{
		Type: EventPrivateActionFail,
		Payload: map[string]interface{}{
			"action":  actionType,
			"kind":    kind,
			"message": err.Error(),
		},
	})
}
