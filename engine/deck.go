package engine

import (
	"io"
	"math/rand"

	"github.com/google/uuid"
)

// DeckCountFor returns how many 52-card decks make up the shoe for a table of
// the given size: two, plus one for every two seats (rounded up).
func DeckCountFor(players int) int {
	if players < 0 {
		players = 0
	}
	return 2 + (players+1)/2
}

// BuildDeck returns deckCount full decks in suit/rank order. Instance ids are
// read from ids when it is non-nil so a seeded game reproduces the same ids;
// otherwise they come from crypto/rand.
func BuildDeck(deckCount int, ids io.Reader) []Card {
	if deckCount < 0 {
		deckCount = 0
	}
	cards := make([]Card, 0, deckCount*52)
	for d := 0; d < deckCount; d++ {
		for _, suit := range Suits {
			for rank := RankAce; rank <= RankKing; rank++ {
				cards = append(cards, Card{ID: newCardID(ids), Suit: suit, Rank: rank})
			}
		}
	}
	return cards
}

func newCardID(ids io.Reader) uuid.UUID {
	if ids == nil {
		return uuid.New()
	}
	id, err := uuid.NewRandomFromReader(ids)
	if err != nil {
		return uuid.New()
	}
	return id
}

// Shuffle permutes pile in place (Fisher-Yates).
func Shuffle(rng *rand.Rand, pile []Card) {
	for i := len(pile) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		pile[i], pile[j] = pile[j], pile[i]
	}
}
