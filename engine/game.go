// Package engine implements the May I rummy rules.
//
// A Game owns every card of the current round's shoe and moves cards between
// hands, the draw pile, the discard pile, the melds on the table and the
// per-player "on table" slot. Mutating methods validate everything before
// touching state and return a *RuleError on rejection, so a rejected call
// never leaves a half-applied change behind. Observers learn about accepted
// changes through the event buffer drained with DrainEvents.
//
// Game is not safe for concurrent use; the owning session serializes calls.
package engine

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Phase of the whole game.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Player is one seat at the table.
type Player struct {
	ID     uuid.UUID
	Name   string
	Hand   []Card
	Scores []int
	// OnTable is a card drawn this turn that is not yet in hand or discarded.
	OnTable *Card
	// ExpectedHandSize is the hand size the player should hold between turns:
	// the deal size, plus two for every May I won, minus cards melded.
	ExpectedHandSize int
	// MayIRestricted blocks melding from winning a May I until the player's
	// own next turn starts.
	MayIRestricted bool
}

// Total returns the player's cumulative score.
func (p *Player) Total() int {
	t := 0
	for _, s := range p.Scores {
		t += s
	}
	return t
}

// Game is the authoritative state of one table.
type Game struct {
	Rules   HouseRules
	Phase   Phase
	Players []*Player

	DrawPile    []Card // top is the last element
	DiscardPile []Card // top is the last element
	Melds       []*Meld

	Round       int // 0-based
	CurrentTurn int // seat index
	TurnCount   int

	DrawnThisTurn     bool
	DiscardedThisTurn bool
	StockDepletions   int

	MayI *MayIRequest

	rng    *rand.Rand
	shoe   map[uuid.UUID]struct{}
	events []Event
}

// Result describes the effect of an accepted operation.
type Result struct {
	Cards        []Card
	Melds        []Meld
	Request      *MayIRequest
	Withheld     bool // stock draw taken without receiving a card
	RoundEnded   bool
	GameOver     bool
	NextPlayerID uuid.UUID
}

// NewGame creates an empty table in the lobby phase. The seed drives the
// shuffle and every id the game hands out.
func NewGame(rules HouseRules, seed int64) *Game {
	return &Game{
		Rules: rules,
		Phase: PhaseLobby,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// AddPlayer seats a player. Only allowed before the game starts.
func (g *Game) AddPlayer(id uuid.UUID, name string) error {
	if g.Phase != PhaseLobby {
		return ruleErr(KindSequence, "game already started")
	}
	if g.playerByID(id) != nil {
		return ruleErr(KindSequence, "player %s already seated", id)
	}
	if g.Rules.MaxPlayers > 0 && len(g.Players) >= g.Rules.MaxPlayers {
		return ruleErr(KindResourceState, "table is full (%d seats)", g.Rules.MaxPlayers)
	}
	g.Players = append(g.Players, &Player{ID: id, Name: name})
	return nil
}

// RemovePlayer frees a seat. Only allowed before the game starts.
func (g *Game) RemovePlayer(id uuid.UUID) error {
	if g.Phase != PhaseLobby {
		return ruleErr(KindSequence, "game already started")
	}
	for i, p := range g.Players {
		if p.ID == id {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return nil
		}
	}
	return ruleErr(KindOwnership, "player %s is not seated", id)
}

// StartGame deals the first round.
func (g *Game) StartGame() (Result, error) {
	if g.Phase != PhaseLobby {
		return Result{}, ruleErr(KindSequence, "game already started")
	}
	if len(g.Players) < g.Rules.MinPlayers {
		return Result{}, ruleErr(KindResourceState, "need at least %d players, have %d", g.Rules.MinPlayers, len(g.Players))
	}
	g.Phase = PhasePlaying
	g.Round = 0
	g.TurnCount = 0
	for _, p := range g.Players {
		p.Scores = nil
	}
	g.emit(EventGameStarted, uuid.Nil, map[string]any{"players": g.playerIDs()})
	g.startRound()
	g.mustConserve()
	return Result{NextPlayerID: g.CurrentPlayer().ID}, nil
}

// startRound builds and shuffles a fresh shoe, deals every seat and flips
// the first discard.
func (g *Game) startRound() {
	n := len(g.Players)
	shoe := BuildDeck(DeckCountFor(n), g.rng)
	Shuffle(g.rng, shoe)

	g.shoe = make(map[uuid.UUID]struct{}, len(shoe))
	for _, c := range shoe {
		g.shoe[c.ID] = struct{}{}
	}

	g.Melds = nil
	g.MayI = nil
	g.StockDepletions = 0
	g.DrawnThisTurn = false
	g.DiscardedThisTurn = false
	for _, p := range g.Players {
		p.Hand = make([]Card, 0, g.Rules.CardsPerPlayer+4)
		p.OnTable = nil
		p.ExpectedHandSize = g.Rules.CardsPerPlayer
		p.MayIRestricted = false
	}

	// Deal one at a time around the table from the top of the shoe.
	for c := 0; c < g.Rules.CardsPerPlayer; c++ {
		for _, p := range g.Players {
			top := len(shoe) - 1
			p.Hand = append(p.Hand, shoe[top])
			shoe = shoe[:top]
		}
	}
	top := len(shoe) - 1
	g.DiscardPile = []Card{shoe[top]}
	g.DrawPile = shoe[:top]

	g.CurrentTurn = g.Round % n

	g.emit(EventRoundStarted, uuid.Nil, map[string]any{
		"round":         g.Round,
		"requirement":   g.Requirement(),
		"currentPlayer": g.CurrentPlayer().ID,
		"discardTop":    g.DiscardPile[0],
		"drawPileSize":  len(g.DrawPile),
	})
	for _, p := range g.Players {
		g.emitTo(p.ID, EventHandDealt, map[string]any{"hand": cloneCards(p.Hand)})
	}
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// CurrentPlayer returns the player whose turn it is, or nil outside play.
func (g *Game) CurrentPlayer() *Player {
	if len(g.Players) == 0 || g.CurrentTurn >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentTurn]
}

// Player returns the seated player with id, or nil.
func (g *Game) Player(id uuid.UUID) *Player { return g.playerByID(id) }

// IsDown reports whether the player has laid down this round.
func (g *Game) IsDown(id uuid.UUID) bool {
	for _, m := range g.Melds {
		if m.OwnerID == id {
			return true
		}
	}
	return false
}

// TotalRounds returns the number of rounds this game will play.
func (g *Game) TotalRounds() int { return g.Rules.numRounds() }

// IsFinalRound reports whether the current round is the last one played.
func (g *Game) IsFinalRound() bool { return g.Round == g.Rules.numRounds()-1 }

// Requirement returns the lay-down requirement of the current round.
func (g *Game) Requirement() RoundConfig {
	return g.Rules.roundConfig(g.Round)
}

// DiscardTop returns the top of the discard pile.
func (g *Game) DiscardTop() (Card, bool) {
	if len(g.DiscardPile) == 0 {
		return Card{}, false
	}
	return g.DiscardPile[len(g.DiscardPile)-1], true
}

// NextSeat returns the seat after seat in turn order.
func (g *Game) NextSeat(seat int) int { return (seat + 1) % len(g.Players) }

// SeatOf returns the seat index of a player, or -1.
func (g *Game) SeatOf(id uuid.UUID) int {
	for i, p := range g.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Meld returns the live meld with id, or nil.
func (g *Game) Meld(id uuid.UUID) *Meld {
	for _, m := range g.Melds {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (g *Game) playerByID(id uuid.UUID) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) playerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(g.Players))
	for i, p := range g.Players {
		ids[i] = p.ID
	}
	return ids
}

func (g *Game) newID() uuid.UUID { return newCardID(g.rng) }

func cloneCards(cards []Card) []Card { return append([]Card(nil), cards...) }

// ---------------------------------------------------------------------------
// Card conservation
// ---------------------------------------------------------------------------

// CheckConservation verifies that every card of the round's shoe is in
// exactly one container. It returns nil outside of play.
func (g *Game) CheckConservation() error {
	if g.Phase != PhasePlaying {
		return nil
	}
	seen := make(map[uuid.UUID]string, len(g.shoe))
	check := func(where string, c Card) error {
		if _, ok := g.shoe[c.ID]; !ok {
			return fmt.Errorf("card %s (%s) in %s is not part of the shoe", c.ID, c, where)
		}
		if prev, dup := seen[c.ID]; dup {
			return fmt.Errorf("card %s (%s) is in both %s and %s", c.ID, c, prev, where)
		}
		seen[c.ID] = where
		return nil
	}
	for _, c := range g.DrawPile {
		if err := check("draw pile", c); err != nil {
			return err
		}
	}
	for _, c := range g.DiscardPile {
		if err := check("discard pile", c); err != nil {
			return err
		}
	}
	for _, p := range g.Players {
		for _, c := range p.Hand {
			if err := check("hand of "+p.Name, c); err != nil {
				return err
			}
		}
		if p.OnTable != nil {
			if err := check("table slot of "+p.Name, *p.OnTable); err != nil {
				return err
			}
		}
	}
	for _, m := range g.Melds {
		for _, mc := range m.Cards {
			if err := check("meld "+m.ID.String(), mc.Card); err != nil {
				return err
			}
		}
	}
	if len(seen) != len(g.shoe) {
		return fmt.Errorf("%d of %d cards are missing", len(g.shoe)-len(seen), len(g.shoe))
	}
	return nil
}

// mustConserve panics when card conservation is broken. That can only be an
// engine bug, never a player mistake.
func (g *Game) mustConserve() {
	if !g.Rules.CheckInvariants {
		return
	}
	if err := g.CheckConservation(); err != nil {
		panic("engine: card conservation violated: " + err.Error())
	}
}
