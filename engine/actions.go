package engine

import "github.com/google/uuid"

// MeldSpec names the cards a player wants to lay down as one meld.
type MeldSpec struct {
	Kind    MeldKind    `json:"type"`
	CardIDs []uuid.UUID `json:"cardIds"`
}

// requireTurn returns the player if it is their turn in a game in progress.
func (g *Game) requireTurn(playerID uuid.UUID) (*Player, error) {
	if g.Phase != PhasePlaying {
		return nil, ruleErr(KindSequence, "game is not in progress")
	}
	p := g.playerByID(playerID)
	if p == nil {
		return nil, ruleErr(KindOwnership, "player %s is not seated", playerID)
	}
	if g.CurrentPlayer().ID != playerID {
		return nil, ruleErr(KindOutOfTurn, "it is %s's turn", g.CurrentPlayer().Name)
	}
	return p, nil
}

func (g *Game) result(cards ...Card) Result {
	r := Result{NextPlayerID: g.CurrentPlayer().ID}
	if len(cards) > 0 {
		r.Cards = cards
	}
	return r
}

// DrawFromStock takes the top card of the draw pile.
//
// A player holding more cards than their expected hand size takes the draw
// without receiving a card and must go straight to discarding. A player
// holding fewer receives the card directly into hand. Otherwise the card
// lands on the table for TakeCardOnTable or DiscardCardOnTable.
//
// An empty draw pile is rebuilt by turning the discard pile over. The second
// time the pile runs out in a round, the round ends instead.
func (g *Game) DrawFromStock(playerID uuid.UUID) (Result, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return Result{}, err
	}
	if g.DrawnThisTurn {
		return Result{}, ruleErr(KindSequence, "already drew this turn")
	}
	if g.MayI != nil {
		return Result{}, ruleErr(KindSequence, "a May I request is pending")
	}

	if len(p.Hand) > p.ExpectedHandSize {
		g.DrawnThisTurn = true
		g.emit(EventDrewStock, p.ID, map[string]any{"withheld": true})
		g.mustConserve()
		res := g.result()
		res.Withheld = true
		return res, nil
	}

	if len(g.DrawPile) == 0 {
		g.StockDepletions++
		if g.StockDepletions >= 2 || len(g.DiscardPile) == 0 {
			return g.endRound(), nil
		}
		g.recycleDiscardPile()
	}

	top := len(g.DrawPile) - 1
	card := g.DrawPile[top]
	g.DrawPile = g.DrawPile[:top]
	g.DrawnThisTurn = true

	toHand := len(p.Hand) < p.ExpectedHandSize
	if toHand {
		p.Hand = append(p.Hand, card)
	} else {
		c := card
		p.OnTable = &c
	}
	g.emit(EventDrewStock, p.ID, map[string]any{"toHand": toHand, "drawPileSize": len(g.DrawPile)})
	g.emitTo(p.ID, EventCardDrawn, map[string]any{"card": card, "toHand": toHand})
	g.mustConserve()
	return g.result(card), nil
}

// recycleDiscardPile turns the discard pile face down to become the new draw
// pile. The pile is not shuffled: the oldest discard is drawn first.
func (g *Game) recycleDiscardPile() {
	n := len(g.DiscardPile)
	pile := make([]Card, n)
	for i, c := range g.DiscardPile {
		pile[n-1-i] = c
	}
	g.DrawPile = pile
	g.DiscardPile = nil
	g.emit(EventStockRecycled, uuid.Nil, map[string]any{
		"drawPileSize": len(g.DrawPile),
		"depletions":   g.StockDepletions,
	})
}

// DrawFromDiscard takes the top discard onto the table. A pending May I
// request for that card is cancelled.
func (g *Game) DrawFromDiscard(playerID uuid.UUID) (Result, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return Result{}, err
	}
	if g.DrawnThisTurn {
		return Result{}, ruleErr(KindSequence, "already drew this turn")
	}
	card, ok := g.DiscardTop()
	if !ok {
		return Result{}, ruleErr(KindResourceState, "discard pile is empty")
	}

	if g.MayI != nil {
		g.cancelMayI("discard_taken")
	}
	g.DiscardPile = g.DiscardPile[:len(g.DiscardPile)-1]
	p.OnTable = &card
	g.DrawnThisTurn = true
	g.emit(EventDrewDiscard, p.ID, map[string]any{"card": card})
	g.mustConserve()
	return g.result(card), nil
}

// TakeCardOnTable moves the on-table card into the hand at insertIndex, or
// appends it when insertIndex is nil or out of range.
func (g *Game) TakeCardOnTable(playerID uuid.UUID, insertIndex *int) (Result, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return Result{}, err
	}
	if p.OnTable == nil {
		return Result{}, ruleErr(KindResourceState, "no card on the table")
	}

	card := *p.OnTable
	idx := len(p.Hand)
	if insertIndex != nil && *insertIndex >= 0 && *insertIndex <= len(p.Hand) {
		idx = *insertIndex
	}
	p.Hand = append(p.Hand, Card{})
	copy(p.Hand[idx+1:], p.Hand[idx:])
	p.Hand[idx] = card
	p.OnTable = nil

	g.emit(EventCardKept, p.ID, nil)
	g.mustConserve()
	return g.result(card), nil
}

// DiscardCardOnTable discards the on-table card. This is the turn's discard.
func (g *Game) DiscardCardOnTable(playerID uuid.UUID) (Result, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return Result{}, err
	}
	if p.OnTable == nil {
		return Result{}, ruleErr(KindResourceState, "no card on the table")
	}
	if g.DiscardedThisTurn {
		return Result{}, ruleErr(KindSequence, "already discarded this turn")
	}
	if g.MayI != nil {
		return Result{}, ruleErr(KindSequence, "a May I request is pending")
	}

	card := *p.OnTable
	p.OnTable = nil
	g.DiscardPile = append(g.DiscardPile, card)
	g.DiscardedThisTurn = true
	g.emit(EventDiscarded, p.ID, map[string]any{"card": card, "fromTable": true})
	g.mustConserve()
	return g.result(card), nil
}

// Discard puts a card from hand, or the on-table card, on the discard pile.
// If another card is on the table it is taken into hand first.
func (g *Game) Discard(playerID, cardID uuid.UUID) (Result, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return Result{}, err
	}
	if !g.DrawnThisTurn {
		return Result{}, ruleErr(KindSequence, "must draw before discarding")
	}
	if g.DiscardedThisTurn {
		return Result{}, ruleErr(KindSequence, "already discarded this turn")
	}
	if g.MayI != nil {
		return Result{}, ruleErr(KindSequence, "a May I request is pending")
	}
	fromTable := p.OnTable != nil && p.OnTable.ID == cardID
	idx := indexOfCard(p.Hand, cardID)
	if !fromTable && idx < 0 {
		return Result{}, ruleErr(KindOwnership, "card %s is not in your hand", cardID)
	}

	var card Card
	if fromTable {
		card = *p.OnTable
	} else {
		card = p.Hand[idx]
		p.Hand = removeAt(p.Hand, idx)
		if p.OnTable != nil {
			p.Hand = append(p.Hand, *p.OnTable)
		}
	}
	p.OnTable = nil
	g.DiscardPile = append(g.DiscardPile, card)
	g.DiscardedThisTurn = true
	g.emit(EventDiscarded, p.ID, map[string]any{"card": card, "fromTable": fromTable, "handCount": len(p.Hand)})
	g.mustConserve()
	return g.result(card), nil
}

// SubmitMelds lays down the round's required melds and puts the player down.
// Every spec must be a founding meld, the specs must match the round's set
// and run counts exactly, no card may appear twice and no two runs may share
// a suit. Outside the final round the player must keep a card to discard.
func (g *Game) SubmitMelds(playerID uuid.UUID, specs []MeldSpec) (Result, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return Result{}, err
	}
	if err := g.checkMeldWindow(p); err != nil {
		return Result{}, err
	}
	if g.IsDown(p.ID) {
		return Result{}, ruleErr(KindSequence, "already down this round")
	}

	req := g.Requirement()
	sets, runs := 0, 0
	for _, s := range specs {
		switch s.Kind {
		case MeldSet:
			sets++
		case MeldRun:
			runs++
		default:
			return Result{}, ruleErr(KindComposition, "unknown meld type %q", s.Kind)
		}
	}
	if sets != req.Sets || runs != req.Runs {
		return Result{}, ruleErr(KindComposition, "round %d needs %d set(s) and %d run(s), got %d and %d",
			g.Round+1, req.Sets, req.Runs, sets, runs)
	}

	used := make(map[uuid.UUID]bool)
	groups := make([][]Card, len(specs))
	for i, s := range specs {
		for _, id := range s.CardIDs {
			if used[id] {
				return Result{}, ruleErr(KindComposition, "card %s used more than once", id)
			}
			used[id] = true
			c, ok := g.heldCard(p, id)
			if !ok {
				return Result{}, ruleErr(KindOwnership, "card %s is not in your hand", id)
			}
			groups[i] = append(groups[i], c)
		}
	}
	runSuits := make(map[Suit]bool)
	for i, s := range specs {
		if !ValidateMeld(s.Kind, groups[i], true) {
			return Result{}, ruleErr(KindComposition, "%s %v is not a valid founding %s", s.Kind, groups[i], s.Kind)
		}
		if s.Kind == MeldRun {
			suit := groups[i][0].Suit
			if runSuits[suit] {
				return Result{}, ruleErr(KindComposition, "two runs in %s", suit)
			}
			runSuits[suit] = true
		}
	}
	if err := g.checkKeepsDiscard(p, len(used)); err != nil {
		return Result{}, err
	}

	out := make([]Meld, 0, len(specs))
	for i, s := range specs {
		m := &Meld{ID: g.newID(), Kind: s.Kind, OwnerID: p.ID}
		for _, c := range groups[i] {
			g.takeHeld(p, c.ID)
			m.Cards = append(m.Cards, MeldCard{PlayerID: p.ID, Card: c})
		}
		g.Melds = append(g.Melds, m)
		out = append(out, m.clone())
	}
	p.ExpectedHandSize -= len(used)

	g.emit(EventMeldsSubmitted, p.ID, map[string]any{"melds": out, "handCount": len(p.Hand)})
	g.mustConserve()
	res := g.result()
	res.Melds = out
	return res, nil
}

// AddToMeld extends any live meld with cards from a player who is down.
func (g *Game) AddToMeld(playerID, meldID uuid.UUID, cardIDs []uuid.UUID) (Result, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return Result{}, err
	}
	if err := g.checkMeldWindow(p); err != nil {
		return Result{}, err
	}
	if !g.IsDown(p.ID) {
		return Result{}, ruleErr(KindSequence, "must go down before adding to melds")
	}
	m := g.Meld(meldID)
	if m == nil {
		return Result{}, ruleErr(KindResourceState, "meld %s does not exist", meldID)
	}
	if len(cardIDs) == 0 {
		return Result{}, ruleErr(KindComposition, "no cards to add")
	}

	used := make(map[uuid.UUID]bool, len(cardIDs))
	adding := make([]Card, 0, len(cardIDs))
	for _, id := range cardIDs {
		if used[id] {
			return Result{}, ruleErr(KindComposition, "card %s used more than once", id)
		}
		used[id] = true
		c, ok := g.heldCard(p, id)
		if !ok {
			return Result{}, ruleErr(KindOwnership, "card %s is not in your hand", id)
		}
		adding = append(adding, c)
	}
	combined := append(m.PlainCards(), adding...)
	if !ValidateMeld(m.Kind, combined, false) {
		return Result{}, ruleErr(KindComposition, "%v cannot extend %s %v", adding, m.Kind, m.PlainCards())
	}
	if err := g.checkKeepsDiscard(p, len(adding)); err != nil {
		return Result{}, err
	}

	for _, c := range adding {
		g.takeHeld(p, c.ID)
		m.Cards = append(m.Cards, MeldCard{PlayerID: p.ID, Card: c})
	}
	p.ExpectedHandSize -= len(adding)

	snap := m.clone()
	g.emit(EventMeldExtended, p.ID, map[string]any{"meld": snap, "cards": adding, "handCount": len(p.Hand)})
	g.mustConserve()
	res := g.result(adding...)
	res.Melds = []Meld{snap}
	return res, nil
}

// checkMeldWindow enforces that melding happens after the draw and before
// the discard, and not while a May I win restricts the player.
func (g *Game) checkMeldWindow(p *Player) error {
	if !g.DrawnThisTurn {
		return ruleErr(KindSequence, "must draw before melding")
	}
	if g.DiscardedThisTurn {
		return ruleErr(KindSequence, "already discarded this turn")
	}
	if p.MayIRestricted {
		return ruleErr(KindSequence, "cannot meld until your next turn after winning a May I")
	}
	return nil
}

// checkKeepsDiscard rejects melding the last held card outside the final
// round, where a player must still be able to discard.
func (g *Game) checkKeepsDiscard(p *Player, melding int) error {
	if g.IsFinalRound() {
		return nil
	}
	held := len(p.Hand)
	if p.OnTable != nil {
		held++
	}
	if held-melding < 1 {
		return ruleErr(KindComposition, "must keep a card to discard")
	}
	return nil
}

// heldCard finds a card in the player's hand or on-table slot.
func (g *Game) heldCard(p *Player, id uuid.UUID) (Card, bool) {
	if p.OnTable != nil && p.OnTable.ID == id {
		return *p.OnTable, true
	}
	if i := indexOfCard(p.Hand, id); i >= 0 {
		return p.Hand[i], true
	}
	return Card{}, false
}

// takeHeld removes a card found by heldCard.
func (g *Game) takeHeld(p *Player, id uuid.UUID) {
	if p.OnTable != nil && p.OnTable.ID == id {
		p.OnTable = nil
		return
	}
	if i := indexOfCard(p.Hand, id); i >= 0 {
		p.Hand = removeAt(p.Hand, i)
	}
}

// EndTurn passes the turn to the next seat. The player must have drawn and
// discarded, except in the final round when they have just gone out. A
// player with no cards left ends the round.
func (g *Game) EndTurn(playerID uuid.UUID) (Result, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return Result{}, err
	}
	if !g.DrawnThisTurn {
		return Result{}, ruleErr(KindSequence, "must draw before ending the turn")
	}
	wentOut := len(p.Hand) == 0 && p.OnTable == nil
	if !g.DiscardedThisTurn && !(wentOut && g.IsFinalRound()) {
		return Result{}, ruleErr(KindSequence, "must discard before ending the turn")
	}

	if wentOut {
		return g.endRound(), nil
	}

	g.CurrentTurn = g.NextSeat(g.CurrentTurn)
	g.DrawnThisTurn = false
	g.DiscardedThisTurn = false
	g.TurnCount++
	next := g.CurrentPlayer()
	next.MayIRestricted = false

	g.emit(EventTurnAdvanced, p.ID, map[string]any{
		"currentPlayer": next.ID,
		"turnCount":     g.TurnCount,
	})
	g.mustConserve()
	return g.result(), nil
}
