package engine

import (
	"sort"

	"github.com/google/uuid"
)

// MeldKind distinguishes sets (same rank) from runs (same suit, consecutive).
type MeldKind string

const (
	MeldSet MeldKind = "set"
	MeldRun MeldKind = "run"
)

const (
	// FoundingSetSize is the exact size of a set laid down when going down.
	FoundingSetSize = 3
	// FoundingRunSize is the exact length of a run laid down when going down.
	FoundingRunSize = 4
	// MaxRunLength is the longest a run can grow: one card of every rank.
	MaxRunLength = 13
)

// MeldCard records which player contributed a card to a meld.
type MeldCard struct {
	PlayerID uuid.UUID `json:"playerId"`
	Card     Card      `json:"card"`
}

// Meld is a live set or run on the table. Melds only grow during a round.
type Meld struct {
	ID      uuid.UUID  `json:"id"`
	Kind    MeldKind   `json:"type"`
	OwnerID uuid.UUID  `json:"ownerId"`
	Cards   []MeldCard `json:"cards"`
}

// PlainCards returns the meld's cards without contributor information.
func (m *Meld) PlainCards() []Card {
	out := make([]Card, len(m.Cards))
	for i, mc := range m.Cards {
		out[i] = mc.Card
	}
	return out
}

func (m *Meld) clone() Meld {
	c := *m
	c.Cards = append([]MeldCard(nil), m.Cards...)
	return c
}

// ValidateMeld reports whether cards form a legal meld of the given kind.
// A founding meld (part of going down) must have exactly the founding size;
// an extension check is run against the combined cards of the meld and has
// no size floor. The result does not depend on the order of cards.
func ValidateMeld(kind MeldKind, cards []Card, founding bool) bool {
	if len(cards) == 0 {
		return false
	}
	switch kind {
	case MeldSet:
		return validSet(cards, founding)
	case MeldRun:
		return validRun(cards, founding)
	}
	return false
}

func validSet(cards []Card, founding bool) bool {
	if founding && len(cards) != FoundingSetSize {
		return false
	}
	rank := cards[0].Rank
	for _, c := range cards[1:] {
		if c.Rank != rank {
			return false
		}
	}
	return true
}

func validRun(cards []Card, founding bool) bool {
	if len(cards) > MaxRunLength {
		return false
	}
	if founding && len(cards) != FoundingRunSize {
		return false
	}
	suit := cards[0].Suit
	ranks := make([]int, len(cards))
	for i, c := range cards {
		if c.Suit != suit {
			return false
		}
		ranks[i] = int(c.Rank)
	}
	sort.Ints(ranks)
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == ranks[i-1] {
			return false
		}
	}
	return consecutiveWithAce(ranks)
}

// consecutiveWithAce checks sorted ranks for a straight where the Ace may sit
// low (A-2-3), high (Q-K-A) or in the middle of a wrap (K-A-2). A wrap is
// found by moving a prefix of the low cards past the King.
func consecutiveWithAce(sorted []int) bool {
	if strictlyConsecutive(sorted) {
		return true
	}
	if sorted[0] != int(RankAce) {
		return false
	}
	shifted := make([]int, len(sorted))
	for split := 1; split < len(sorted); split++ {
		n := copy(shifted, sorted[split:])
		for i, r := range sorted[:split] {
			shifted[n+i] = r + 13
		}
		if strictlyConsecutive(shifted) {
			return true
		}
	}
	return false
}

func strictlyConsecutive(ranks []int) bool {
	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			return false
		}
	}
	return true
}
