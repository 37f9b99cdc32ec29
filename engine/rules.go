package engine

// RoundConfig is what a player must lay down to go down in a round.
type RoundConfig struct {
	Sets int `json:"sets"`
	Runs int `json:"runs"`
}

var roundConfigs = [...]RoundConfig{
	{Sets: 2, Runs: 0},
	{Sets: 1, Runs: 1},
	{Sets: 0, Runs: 2},
	{Sets: 3, Runs: 0},
	{Sets: 2, Runs: 1},
	{Sets: 1, Runs: 2},
	{Sets: 0, Runs: 3},
}

// NumRounds is the number of rounds in a full game.
const NumRounds = len(roundConfigs)

// RoundConfigs returns a copy of the round requirement table.
func RoundConfigs() []RoundConfig {
	out := make([]RoundConfig, NumRounds)
	copy(out, roundConfigs[:])
	return out
}

// ConfigForRound returns the requirement for round i (0-based).
func ConfigForRound(i int) (RoundConfig, bool) {
	if i < 0 || i >= NumRounds {
		return RoundConfig{}, false
	}
	return roundConfigs[i], true
}

// HouseRules holds configurable table settings.
type HouseRules struct {
	MinPlayers       int
	MaxPlayers       int
	CardsPerPlayer   int
	ShortHandPenalty int // points per card a hand is short of expected size
	// Schedule overrides the round table, e.g. for a short game. Nil plays
	// the standard seven rounds.
	Schedule []RoundConfig
	// CheckInvariants verifies card conservation after every mutation and
	// panics on failure.
	CheckInvariants bool
}

// DefaultHouseRules returns the standard May I table rules.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		MinPlayers:       2,
		MaxPlayers:       8,
		CardsPerPlayer:   11,
		ShortHandPenalty: 10,
		CheckInvariants:  true,
	}
}

// numRounds returns the number of rounds in a game under these rules.
func (r *HouseRules) numRounds() int {
	if len(r.Schedule) > 0 {
		return len(r.Schedule)
	}
	return NumRounds
}

// roundConfig returns the requirement for round i under these rules.
func (r *HouseRules) roundConfig(i int) RoundConfig {
	if len(r.Schedule) > 0 {
		if i >= 0 && i < len(r.Schedule) {
			return r.Schedule[i]
		}
		return RoundConfig{}
	}
	cfg, _ := ConfigForRound(i)
	return cfg
}
