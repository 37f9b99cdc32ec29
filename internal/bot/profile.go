package bot

import (
	"strings"
	"time"
)

// Profile tunes how an automated opponent plays.
type Profile struct {
	Name string `json:"name"`
	// DenyChance is the probability of denying a May I when asked to vote.
	DenyChance float64 `json:"denyChance"`
	// Think is the delay before each move.
	Think time.Duration `json:"think"`
	// DrawDiscardChance is the probability of starting a turn from the
	// discard pile instead of the stock.
	DrawDiscardChance float64 `json:"drawDiscardChance"`
	// RequestChance is the probability of asking May I for a discard.
	RequestChance float64 `json:"requestChance"`
}

var (
	EasyBot = Profile{
		Name:              "easy",
		DenyChance:        0.05,
		Think:             250 * time.Millisecond,
		DrawDiscardChance: 0.3,
		RequestChance:     0.01,
	}
	HardBot = Profile{
		Name:              "hard",
		DenyChance:        0.25,
		Think:             500 * time.Millisecond,
		DrawDiscardChance: 0.7,
		RequestChance:     0.04,
	}
)

// ProfileByName looks up a profile case-insensitively. Unknown names get
// EasyBot and false.
func ProfileByName(name string) (Profile, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "easy":
		return EasyBot, true
	case "hard":
		return HardBot, true
	}
	return EasyBot, false
}

// WithThink returns a copy of p whose think delay is d, if d is positive.
func (p Profile) WithThink(d time.Duration) Profile {
	if d > 0 {
		p.Think = d
	}
	return p
}
