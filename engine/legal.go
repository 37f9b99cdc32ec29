package engine

import "github.com/google/uuid"

// ActionType names an operation a player can perform.
type ActionType string

const (
	ActionStartGame          ActionType = "start_game"
	ActionDrawStock          ActionType = "draw_stock"
	ActionDrawDiscard        ActionType = "draw_discard"
	ActionTakeCardOnTable    ActionType = "take_card_on_table"
	ActionDiscardCardOnTable ActionType = "discard_card_on_table"
	ActionDiscard            ActionType = "discard"
	ActionSubmitMelds        ActionType = "submit_melds"
	ActionAddToMeld          ActionType = "add_to_meld"
	ActionRequestMayI        ActionType = "request_may_i"
	ActionRespondMayI        ActionType = "respond_may_i"
	ActionCancelMayI         ActionType = "cancel_may_i"
	ActionEndTurn            ActionType = "end_turn"
)

// DecisionContext describes what the game is waiting for.
type DecisionContext string

const (
	CtxLobby       DecisionContext = "lobby"
	CtxStartTurn   DecisionContext = "start_turn" // turn player must draw
	CtxCardOnTable DecisionContext = "card_on_table"
	CtxPostDraw    DecisionContext = "post_draw" // meld and discard
	CtxEndTurn     DecisionContext = "end_turn"
	CtxMayIVote    DecisionContext = "may_i_vote" // a request awaits a voter
	CtxTerminal    DecisionContext = "terminal"
)

// DecisionCtx returns the current decision context of the table.
func (g *Game) DecisionCtx() DecisionContext {
	switch g.Phase {
	case PhaseLobby:
		return CtxLobby
	case PhaseFinished:
		return CtxTerminal
	}
	if g.MayI != nil {
		return CtxMayIVote
	}
	switch {
	case !g.DrawnThisTurn:
		return CtxStartTurn
	case g.CurrentPlayer().OnTable != nil:
		return CtxCardOnTable
	case !g.DiscardedThisTurn:
		return CtxPostDraw
	}
	return CtxEndTurn
}

// LegalActions lists the operations the player may perform right now. Meld
// operations are listed when the player is in a position to meld; whether a
// particular meld is valid is only known once the cards are named.
func (g *Game) LegalActions(playerID uuid.UUID) []ActionType {
	p := g.playerByID(playerID)
	if p == nil {
		return nil
	}
	switch g.Phase {
	case PhaseLobby:
		if len(g.Players) >= g.Rules.MinPlayers {
			return []ActionType{ActionStartGame}
		}
		return nil
	case PhaseFinished:
		return nil
	}

	var actions []ActionType
	if g.MayI != nil {
		if next, ok := g.MayI.NextVoter(); ok && next == playerID {
			actions = append(actions, ActionRespondMayI)
		}
		if g.MayI.RequesterID == playerID {
			actions = append(actions, ActionCancelMayI)
		}
	}

	if g.CurrentPlayer().ID != playerID {
		if g.MayI == nil && len(g.DiscardPile) > 0 && !g.IsDown(playerID) {
			actions = append(actions, ActionRequestMayI)
		}
		return actions
	}

	if !g.DrawnThisTurn {
		if g.MayI == nil {
			actions = append(actions, ActionDrawStock)
		}
		if len(g.DiscardPile) > 0 {
			actions = append(actions, ActionDrawDiscard)
		}
		return actions
	}

	if p.OnTable != nil {
		actions = append(actions, ActionTakeCardOnTable)
		if !g.DiscardedThisTurn && g.MayI == nil {
			actions = append(actions, ActionDiscardCardOnTable)
		}
	}
	if !g.DiscardedThisTurn {
		if !p.MayIRestricted {
			if g.IsDown(playerID) {
				if len(g.Melds) > 0 {
					actions = append(actions, ActionAddToMeld)
				}
			} else {
				actions = append(actions, ActionSubmitMelds)
			}
		}
		if g.MayI == nil && (len(p.Hand) > 0 || p.OnTable != nil) {
			actions = append(actions, ActionDiscard)
		}
	}
	wentOut := len(p.Hand) == 0 && p.OnTable == nil
	if g.DiscardedThisTurn || (wentOut && g.IsFinalRound()) {
		actions = append(actions, ActionEndTurn)
	}
	return actions
}
