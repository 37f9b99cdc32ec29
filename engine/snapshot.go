package engine

import "github.com/google/uuid"

// PublicPlayer is what every seat may know about a player.
type PublicPlayer struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	HandCount        int       `json:"handCount"`
	HasCardOnTable   bool      `json:"hasCardOnTable"`
	ExpectedHandSize int       `json:"expectedHandSize"`
	IsDown           bool      `json:"isDown"`
	MayIRestricted   bool      `json:"mayIRestricted"`
	Scores           []int     `json:"scores"`
	Total            int       `json:"total"`
}

// MayISummary is the public view of a pending request.
type MayISummary struct {
	ID          uuid.UUID   `json:"id"`
	RequesterID uuid.UUID   `json:"requesterId"`
	Card        Card        `json:"card"`
	Voters      []uuid.UUID `json:"voters"`
	NextVoterID uuid.UUID   `json:"nextVoterId"`
	Accepted    int         `json:"accepted"`
}

// PublicState is the snapshot safe to broadcast to the whole table. It never
// contains a hand or an on-table card.
type PublicState struct {
	Phase             Phase          `json:"phase"`
	Round             int            `json:"round"`
	TotalRounds       int            `json:"totalRounds"`
	Requirement       RoundConfig    `json:"requirement"`
	CurrentPlayerID   uuid.UUID      `json:"currentPlayerId"`
	TurnCount         int            `json:"turnCount"`
	DrawnThisTurn     bool           `json:"drawnThisTurn"`
	DiscardedThisTurn bool           `json:"discardedThisTurn"`
	DrawPileSize      int            `json:"drawPileSize"`
	DiscardPile       []Card         `json:"discardPile"`
	StockDepletions   int            `json:"stockDepletions"`
	Players           []PublicPlayer `json:"players"`
	Melds             []Meld         `json:"melds"`
	MayI              *MayISummary   `json:"mayI,omitempty"`
}

// PrivateView is what only the owning player may see.
type PrivateView struct {
	PlayerID    uuid.UUID    `json:"playerId"`
	Hand        []Card       `json:"hand"`
	OnTable     *Card        `json:"onTable,omitempty"`
	HandSummary HandSummary  `json:"handSummary"`
	Legal       []ActionType `json:"legalActions"`
}

// PublicState returns the broadcast snapshot.
func (g *Game) PublicState() PublicState {
	s := PublicState{
		Phase:             g.Phase,
		Round:             g.Round,
		TotalRounds:       g.TotalRounds(),
		Requirement:       g.Requirement(),
		TurnCount:         g.TurnCount,
		DrawnThisTurn:     g.DrawnThisTurn,
		DiscardedThisTurn: g.DiscardedThisTurn,
		DrawPileSize:      len(g.DrawPile),
		DiscardPile:       cloneCards(g.DiscardPile),
		StockDepletions:   g.StockDepletions,
		Players:           make([]PublicPlayer, len(g.Players)),
		Melds:             make([]Meld, len(g.Melds)),
	}
	if cur := g.CurrentPlayer(); cur != nil {
		s.CurrentPlayerID = cur.ID
	}
	for i, p := range g.Players {
		s.Players[i] = PublicPlayer{
			ID:               p.ID,
			Name:             p.Name,
			HandCount:        len(p.Hand),
			HasCardOnTable:   p.OnTable != nil,
			ExpectedHandSize: p.ExpectedHandSize,
			IsDown:           g.IsDown(p.ID),
			MayIRestricted:   p.MayIRestricted,
			Scores:           append([]int(nil), p.Scores...),
			Total:            p.Total(),
		}
	}
	for i, m := range g.Melds {
		s.Melds[i] = m.clone()
	}
	if r := g.MayI; r != nil {
		next, _ := r.NextVoter()
		s.MayI = &MayISummary{
			ID:          r.ID,
			RequesterID: r.RequesterID,
			Card:        r.Card,
			Voters:      append([]uuid.UUID(nil), r.Voters...),
			NextVoterID: next,
			Accepted:    len(r.Responses),
		}
	}
	return s
}

// PrivateView returns the player's own hand and on-table card.
func (g *Game) PrivateView(playerID uuid.UUID) (PrivateView, bool) {
	p := g.playerByID(playerID)
	if p == nil {
		return PrivateView{}, false
	}
	v := PrivateView{
		PlayerID:    p.ID,
		Hand:        cloneCards(p.Hand),
		HandSummary: SummarizeHand(p.Hand),
		Legal:       g.LegalActions(playerID),
	}
	if p.OnTable != nil {
		c := *p.OnTable
		v.OnTable = &c
	}
	return v, true
}
