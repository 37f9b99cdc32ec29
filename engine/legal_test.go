package engine

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

// TestLegalActionsLobby verifies start is offered once enough players sit.
func TestLegalActionsLobby(t *testing.T) {
	g := NewGame(DefaultHouseRules(), 1)
	a := uuid.New()
	_ = g.AddPlayer(a, "a")
	if got := g.LegalActions(a); len(got) != 0 {
		t.Errorf("one player: %v, want none", got)
	}
	_ = g.AddPlayer(uuid.New(), "b")
	if got := g.LegalActions(a); !reflect.DeepEqual(got, []ActionType{ActionStartGame}) {
		t.Errorf("two players: %v, want start_game", got)
	}
	if g.DecisionCtx() != CtxLobby {
		t.Errorf("DecisionCtx = %s, want lobby", g.DecisionCtx())
	}
	if got := g.LegalActions(uuid.New()); got != nil {
		t.Errorf("stranger: %v, want nil", got)
	}
}

// TestLegalActionsTurnFlow walks one turn and checks the listing at each step.
func TestLegalActionsTurnFlow(t *testing.T) {
	g, ids := newTestGame(t, 3, DefaultHouseRules())

	want := func(ctx DecisionContext, id uuid.UUID, actions ...ActionType) {
		t.Helper()
		if g.DecisionCtx() != ctx {
			t.Errorf("DecisionCtx = %s, want %s", g.DecisionCtx(), ctx)
		}
		if got := g.LegalActions(id); !reflect.DeepEqual(got, actions) {
			t.Errorf("LegalActions = %v, want %v", got, actions)
		}
	}

	want(CtxStartTurn, ids[0], ActionDrawStock, ActionDrawDiscard)
	want(CtxStartTurn, ids[1], ActionRequestMayI)

	_, _ = g.DrawFromStock(ids[0])
	want(CtxCardOnTable, ids[0], ActionTakeCardOnTable, ActionDiscardCardOnTable, ActionSubmitMelds, ActionDiscard)

	_, _ = g.TakeCardOnTable(ids[0], nil)
	want(CtxPostDraw, ids[0], ActionSubmitMelds, ActionDiscard)

	_, _ = g.Discard(ids[0], g.Players[0].Hand[0].ID)
	want(CtxEndTurn, ids[0], ActionEndTurn)
}

// TestLegalActionsDuringVote verifies the vote context offers each party
// only its part.
func TestLegalActionsDuringVote(t *testing.T) {
	g, ids := newTestGame(t, 4, DefaultHouseRules())
	if _, err := g.RequestMayI(ids[3]); err != nil {
		t.Fatalf("RequestMayI: %v", err)
	}
	if g.DecisionCtx() != CtxMayIVote {
		t.Errorf("DecisionCtx = %s, want may_i_vote", g.DecisionCtx())
	}
	if got := g.LegalActions(ids[1]); !reflect.DeepEqual(got, []ActionType{ActionRespondMayI}) {
		t.Errorf("voter: %v", got)
	}
	if got := g.LegalActions(ids[2]); len(got) != 0 {
		t.Errorf("waiting voter: %v, want none", got)
	}
	if got := g.LegalActions(ids[3]); !reflect.DeepEqual(got, []ActionType{ActionCancelMayI}) {
		t.Errorf("requester: %v", got)
	}
	if got := g.LegalActions(ids[0]); !reflect.DeepEqual(got, []ActionType{ActionDrawDiscard}) {
		t.Errorf("turn player: %v, want only draw_discard", got)
	}
}

// TestLegalActionsRestrictedWinner verifies a May I winner is not offered
// melding on the turn they won.
func TestLegalActionsRestrictedWinner(t *testing.T) {
	g, ids := newTestGame(t, 2, DefaultHouseRules())
	p := g.Players[0]
	p.MayIRestricted = true
	_, _ = g.DrawFromStock(ids[0])
	_, _ = g.TakeCardOnTable(ids[0], nil)
	if got := g.LegalActions(ids[0]); hasActionType(got, ActionSubmitMelds) {
		t.Errorf("restricted player offered %v", got)
	}
}

func hasActionType(list []ActionType, a ActionType) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
