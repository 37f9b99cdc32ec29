package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// card builds a fresh card for rigging hands and piles in tests.
func card(s Suit, r Rank) Card { return Card{ID: uuid.New(), Suit: s, Rank: r} }

// newTestGame seats n players and starts the game with the given rules.
func newTestGame(t *testing.T, n int, rules HouseRules) (*Game, []uuid.UUID) {
	t.Helper()
	g := NewGame(rules, 42)
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		if err := g.AddPlayer(ids[i], fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("AddPlayer(%d): %v", i, err)
		}
	}
	if _, err := g.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	g.DrainEvents()
	return g, ids
}

// setHand replaces a player's hand with the given cards, keeping the shoe
// bookkeeping in step so conservation still holds.
func setHand(g *Game, seat int, cards ...Card) {
	p := g.Players[seat]
	for _, c := range p.Hand {
		delete(g.shoe, c.ID)
	}
	for _, c := range cards {
		g.shoe[c.ID] = struct{}{}
	}
	p.Hand = cards
}

// setDrawPile replaces the draw pile; the last card is the top.
func setDrawPile(g *Game, cards ...Card) {
	for _, c := range g.DrawPile {
		delete(g.shoe, c.ID)
	}
	for _, c := range cards {
		g.shoe[c.ID] = struct{}{}
	}
	g.DrawPile = cards
}

// setDiscardPile replaces the discard pile; the last card is the top.
func setDiscardPile(g *Game, cards ...Card) {
	for _, c := range g.DiscardPile {
		delete(g.shoe, c.ID)
	}
	for _, c := range cards {
		g.shoe[c.ID] = struct{}{}
	}
	g.DiscardPile = cards
}

// mustConserveT fails the test if card conservation is broken.
func mustConserveT(t *testing.T, g *Game) {
	t.Helper()
	if err := g.CheckConservation(); err != nil {
		t.Fatalf("conservation: %v", err)
	}
}

// TestRoundConfigTable verifies the seven-round requirement table.
func TestRoundConfigTable(t *testing.T) {
	want := []RoundConfig{
		{Sets: 2}, {Sets: 1, Runs: 1}, {Runs: 2}, {Sets: 3},
		{Sets: 2, Runs: 1}, {Sets: 1, Runs: 2}, {Runs: 3},
	}
	got := RoundConfigs()
	if len(got) != len(want) {
		t.Fatalf("len(RoundConfigs) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("round %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// The returned slice is a copy.
	got[0].Sets = 99
	if cfg, _ := ConfigForRound(0); cfg.Sets != 2 {
		t.Errorf("RoundConfigs leaked the table: round 0 sets = %d", cfg.Sets)
	}
	if _, ok := ConfigForRound(NumRounds); ok {
		t.Error("ConfigForRound past the table should report false")
	}
	if _, ok := ConfigForRound(-1); ok {
		t.Error("ConfigForRound(-1) should report false")
	}
}

// TestAddPlayerLobbyOnly verifies seating rules.
func TestAddPlayerLobbyOnly(t *testing.T) {
	rules := DefaultHouseRules()
	rules.MaxPlayers = 2
	g := NewGame(rules, 1)
	a, b := uuid.New(), uuid.New()

	if err := g.AddPlayer(a, "a"); err != nil {
		t.Fatalf("AddPlayer a: %v", err)
	}
	if err := g.AddPlayer(a, "a"); !errors.Is(err, ErrSequence) {
		t.Errorf("duplicate seat err = %v, want sequence", err)
	}
	if _, err := g.StartGame(); !errors.Is(err, ErrResourceState) {
		t.Errorf("StartGame with one player err = %v, want resource-state", err)
	}
	if err := g.AddPlayer(b, "b"); err != nil {
		t.Fatalf("AddPlayer b: %v", err)
	}
	if err := g.AddPlayer(uuid.New(), "c"); !errors.Is(err, ErrResourceState) {
		t.Errorf("full table err = %v, want resource-state", err)
	}
	if _, err := g.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if err := g.AddPlayer(uuid.New(), "late"); !errors.Is(err, ErrSequence) {
		t.Errorf("AddPlayer after start err = %v, want sequence", err)
	}
	if err := g.RemovePlayer(a); !errors.Is(err, ErrSequence) {
		t.Errorf("RemovePlayer after start err = %v, want sequence", err)
	}
}

// TestStartGameDeal verifies the deal: eleven cards a seat, one discard and
// the rest in the draw pile.
func TestStartGameDeal(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8} {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			g, ids := newTestGame(t, n, DefaultHouseRules())

			shoe := DeckCountFor(n) * 52
			for i, p := range g.Players {
				if len(p.Hand) != 11 {
					t.Errorf("seat %d hand = %d, want 11", i, len(p.Hand))
				}
				if p.ExpectedHandSize != 11 {
					t.Errorf("seat %d expected hand size = %d, want 11", i, p.ExpectedHandSize)
				}
			}
			if len(g.DiscardPile) != 1 {
				t.Errorf("discard pile = %d, want 1", len(g.DiscardPile))
			}
			if want := shoe - 11*n - 1; len(g.DrawPile) != want {
				t.Errorf("draw pile = %d, want %d", len(g.DrawPile), want)
			}
			if g.CurrentPlayer().ID != ids[0] {
				t.Error("round 0 should start with seat 0")
			}
			mustConserveT(t, g)
		})
	}
}

// TestStartGameEvents verifies the round start is announced and each hand is
// sent only to its owner.
func TestStartGameEvents(t *testing.T) {
	g := NewGame(DefaultHouseRules(), 7)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, id := range ids {
		_ = g.AddPlayer(id, fmt.Sprintf("p%d", i))
	}
	if _, err := g.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	events := g.DrainEvents()
	dealt := map[uuid.UUID]bool{}
	var sawRound bool
	for _, e := range events {
		switch e.Type {
		case EventRoundStarted:
			sawRound = true
			if e.Private() {
				t.Error("round_started should be public")
			}
		case EventHandDealt:
			if e.Recipient == uuid.Nil {
				t.Error("hand_dealt must be private")
			}
			dealt[e.Recipient] = true
		}
	}
	if !sawRound {
		t.Error("missing round_started")
	}
	if len(dealt) != len(ids) {
		t.Errorf("hands dealt to %d players, want %d", len(dealt), len(ids))
	}
	if len(g.DrainEvents()) != 0 {
		t.Error("DrainEvents should clear the buffer")
	}
}

// TestSameSeedSameGame verifies a seed reproduces the deal including ids.
func TestSameSeedSameGame(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	deal := func() *Game {
		g := NewGame(DefaultHouseRules(), 99)
		for _, id := range ids {
			_ = g.AddPlayer(id, "p")
		}
		_, _ = g.StartGame()
		return g
	}
	a, b := deal(), deal()
	for i := range a.Players[0].Hand {
		if a.Players[0].Hand[i] != b.Players[0].Hand[i] {
			t.Fatalf("hand card %d differs: %v vs %v", i, a.Players[0].Hand[i], b.Players[0].Hand[i])
		}
	}
}

// TestPublicStateHidesHands verifies the broadcast snapshot carries counts
// only and never a hand or on-table card.
func TestPublicStateHidesHands(t *testing.T) {
	g, ids := newTestGame(t, 3, DefaultHouseRules())
	if _, err := g.DrawFromStock(ids[0]); err != nil {
		t.Fatalf("DrawFromStock: %v", err)
	}

	state := g.PublicState()
	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, p := range g.Players {
		for _, c := range p.Hand {
			if strings.Contains(string(raw), c.ID.String()) {
				t.Fatalf("public state leaks hand card %s of %s", c, p.Name)
			}
		}
	}
	onTable := g.Players[0].OnTable
	if onTable == nil {
		t.Fatal("expected a card on the table after drawing")
	}
	if strings.Contains(string(raw), onTable.ID.String()) {
		t.Fatal("public state leaks the on-table card")
	}
	if !state.Players[0].HasCardOnTable || state.Players[0].HandCount != 11 {
		t.Errorf("seat 0 public view = %+v", state.Players[0])
	}

	view, ok := g.PrivateView(ids[0])
	if !ok {
		t.Fatal("PrivateView for seated player returned false")
	}
	if view.OnTable == nil || view.OnTable.ID != onTable.ID {
		t.Error("private view should carry the on-table card")
	}
	if len(view.Hand) != 11 {
		t.Errorf("private hand = %d, want 11", len(view.Hand))
	}
	if _, ok := g.PrivateView(uuid.New()); ok {
		t.Error("PrivateView for a stranger should return false")
	}
}

// TestConservationDetectsCorruption verifies the invariant check catches a
// duplicated and a lost card.
func TestConservationDetectsCorruption(t *testing.T) {
	g, _ := newTestGame(t, 2, DefaultHouseRules())
	mustConserveT(t, g)

	dup := g.Players[0].Hand[0]
	g.Players[1].Hand = append(g.Players[1].Hand, dup)
	if err := g.CheckConservation(); err == nil {
		t.Error("duplicate card not detected")
	}
	g.Players[1].Hand = g.Players[1].Hand[:len(g.Players[1].Hand)-1]

	g.DrawPile = g.DrawPile[1:]
	if err := g.CheckConservation(); err == nil {
		t.Error("missing card not detected")
	}

	defer func() {
		if recover() == nil {
			t.Error("mustConserve should panic on a broken invariant")
		}
	}()
	g.mustConserve()
}
