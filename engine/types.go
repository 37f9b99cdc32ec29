package engine

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Suit of a card. Encoded on the wire as its lower-case name.
type Suit uint8

const (
	SuitSpades Suit = iota
	SuitHearts
	SuitDiamonds
	SuitClubs
)

// Suits lists every suit in deck-build order.
var Suits = [...]Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

var suitNames = [...]string{"spades", "hearts", "diamonds", "clubs"}
var suitSymbols = [...]string{"♠", "♥", "♦", "♣"}

func (s Suit) String() string {
	if int(s) < len(suitNames) {
		return suitNames[s]
	}
	return "suit(" + strconv.Itoa(int(s)) + ")"
}

// Symbol returns the unicode pip for the suit.
func (s Suit) Symbol() string {
	if int(s) < len(suitSymbols) {
		return suitSymbols[s]
	}
	return "?"
}

// MarshalText implements encoding.TextMarshaler.
func (s Suit) MarshalText() ([]byte, error) {
	if int(s) >= len(suitNames) {
		return nil, fmt.Errorf("invalid suit %d", s)
	}
	return []byte(suitNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Suit) UnmarshalText(b []byte) error {
	for i, name := range suitNames {
		if name == string(b) {
			*s = Suit(i)
			return nil
		}
	}
	return fmt.Errorf("unknown suit %q", b)
}

// Rank runs from Ace (1) to King (13).
type Rank uint8

const (
	RankAce   Rank = 1
	RankTwo   Rank = 2
	RankThree Rank = 3
	RankFour  Rank = 4
	RankFive  Rank = 5
	RankSix   Rank = 6
	RankSeven Rank = 7
	RankEight Rank = 8
	RankNine  Rank = 9
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
)

// Label returns the short face label: A, 2..10, J, Q, K.
func (r Rank) Label() string {
	switch r {
	case RankAce:
		return "A"
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	}
	return strconv.Itoa(int(r))
}

// Card is one physical card of the shoe. Two cards with the same suit and
// rank are different cards; identity is the ID.
type Card struct {
	ID   uuid.UUID `json:"id"`
	Suit Suit      `json:"suit"`
	Rank Rank      `json:"rank"`
}

// Value returns the scoring value of the card:
//   - Ace → 15
//   - Ten, Jack, Queen, King → 10
//   - Two–Nine → 5
func (c Card) Value() int {
	switch {
	case c.Rank == RankAce:
		return 15
	case c.Rank >= RankTen:
		return 10
	default:
		return 5
	}
}

func (c Card) String() string { return c.Rank.Label() + c.Suit.Symbol() }

// indexOfCard returns the position of the card with id in cards, or -1.
func indexOfCard(cards []Card, id uuid.UUID) int {
	for i := range cards {
		if cards[i].ID == id {
			return i
		}
	}
	return -1
}

// removeAt removes cards[i], keeping order, and returns the shortened slice.
func removeAt(cards []Card, i int) []Card {
	return append(cards[:i:i], cards[i+1:]...)
}
