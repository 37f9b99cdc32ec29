package engine

import (
	"sort"

	"github.com/google/uuid"
)

// ScoreHand returns the round score for a hand: the sum of card values,
// plus a penalty for every card a non-empty hand is short of expected.
func ScoreHand(hand []Card, expected, penaltyPerCard int) int {
	score := 0
	for _, c := range hand {
		score += c.Value()
	}
	if n := len(hand); n > 0 && n < expected {
		score += (expected - n) * penaltyPerCard
	}
	return score
}

// endRound scores every hand, clears the table and either deals the next
// round or finishes the game.
func (g *Game) endRound() Result {
	if g.MayI != nil {
		g.cancelMayI("round_ended")
	}

	scores := make(map[uuid.UUID]int, len(g.Players))
	for _, p := range g.Players {
		if p.OnTable != nil {
			p.Hand = append(p.Hand, *p.OnTable)
			p.OnTable = nil
		}
		s := ScoreHand(p.Hand, p.ExpectedHandSize, g.Rules.ShortHandPenalty)
		p.Scores = append(p.Scores, s)
		scores[p.ID] = s
		p.Hand = nil
	}
	g.DrawPile = nil
	g.DiscardPile = nil
	g.Melds = nil
	g.shoe = nil

	finished := g.Round
	g.emit(EventRoundEnded, uuid.Nil, map[string]any{
		"round":     finished,
		"scores":    scores,
		"standings": g.Standings(),
	})

	g.Round++
	if g.Round >= g.Rules.numRounds() {
		g.Phase = PhaseFinished
		g.emit(EventGameEnded, uuid.Nil, map[string]any{"standings": g.Standings()})
		return Result{RoundEnded: true, GameOver: true}
	}
	g.DrawnThisTurn = false
	g.DiscardedThisTurn = false
	g.startRound()
	g.mustConserve()
	return Result{RoundEnded: true, NextPlayerID: g.CurrentPlayer().ID}
}

// Standing is one player's cumulative position.
type Standing struct {
	PlayerID uuid.UUID `json:"playerId"`
	Name     string    `json:"name"`
	Scores   []int     `json:"scores"`
	Total    int       `json:"total"`
	Leader   bool      `json:"leader"` // lowest total; ties share the lead
}

// Standings returns players ordered by cumulative score, lowest first.
func (g *Game) Standings() []Standing {
	out := make([]Standing, len(g.Players))
	for i, p := range g.Players {
		out[i] = Standing{
			PlayerID: p.ID,
			Name:     p.Name,
			Scores:   append([]int(nil), p.Scores...),
			Total:    p.Total(),
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total < out[j].Total })
	for i := range out {
		out[i].Leader = out[i].Total == out[0].Total
	}
	return out
}

// HandBucket counts the cards of one point value in a hand.
type HandBucket struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

// HandSummary groups a hand by card value (5, 10 and 15 points).
type HandSummary struct {
	Buckets    map[int]HandBucket `json:"buckets"`
	GrandCount int                `json:"grandCount"`
	GrandTotal int                `json:"grandTotal"`
}

// SummarizeHand buckets the cards of a hand by value.
func SummarizeHand(hand []Card) HandSummary {
	s := HandSummary{Buckets: map[int]HandBucket{5: {}, 10: {}, 15: {}}}
	for _, c := range hand {
		v := c.Value()
		b := s.Buckets[v]
		b.Count++
		b.Total += v
		s.Buckets[v] = b
		s.GrandCount++
		s.GrandTotal += v
	}
	return s
}
