package bot

import (
	"sort"

	"github.com/google/uuid"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
)

// FindFoundingMelds searches hand for the round's required melds. Runs are
// taken first, each in a different suit, then sets from what is left. The
// search is greedy: a hand that needs a different split is not found.
// Outside the final round at least one card must remain for the discard.
func FindFoundingMelds(hand []engine.Card, req engine.RoundConfig, finalRound bool) ([]engine.MeldSpec, bool) {
	used := make(map[uuid.UUID]bool)
	var specs []engine.MeldSpec

	runSuits := make(map[engine.Suit]bool)
	for n := 0; n < req.Runs; n++ {
		found := false
		for _, s := range engine.Suits {
			if runSuits[s] {
				continue
			}
			if run, ok := findRun(hand, s, used); ok {
				runSuits[s] = true
				specs = append(specs, markUsed(engine.MeldRun, run, used))
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}

	for n := 0; n < req.Sets; n++ {
		set, ok := findSet(hand, used)
		if !ok {
			return nil, false
		}
		specs = append(specs, markUsed(engine.MeldSet, set, used))
	}

	if !finalRound && len(hand)-len(used) < 1 {
		return nil, false
	}
	return specs, true
}

func markUsed(kind engine.MeldKind, cards []engine.Card, used map[uuid.UUID]bool) engine.MeldSpec {
	spec := engine.MeldSpec{Kind: kind, CardIDs: make([]uuid.UUID, len(cards))}
	for i, c := range cards {
		used[c.ID] = true
		spec.CardIDs[i] = c.ID
	}
	return spec
}

// findRun returns a founding run in suit s from unused cards.
func findRun(hand []engine.Card, s engine.Suit, used map[uuid.UUID]bool) ([]engine.Card, bool) {
	byRank := make(map[engine.Rank]engine.Card)
	for _, c := range hand {
		if c.Suit != s || used[c.ID] {
			continue
		}
		if _, dup := byRank[c.Rank]; !dup {
			byRank[c.Rank] = c
		}
	}
	if len(byRank) < engine.FoundingRunSize {
		return nil, false
	}
	cands := make([]engine.Card, 0, len(byRank))
	for _, c := range byRank {
		cands = append(cands, c)
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].Rank < cands[j].Rank })

	// At most 13 distinct ranks, so trying every 4-card choice is cheap.
	var pick func(start int, chosen []engine.Card) ([]engine.Card, bool)
	pick = func(start int, chosen []engine.Card) ([]engine.Card, bool) {
		if len(chosen) == engine.FoundingRunSize {
			if engine.ValidateMeld(engine.MeldRun, chosen, true) {
				return append([]engine.Card(nil), chosen...), true
			}
			return nil, false
		}
		for i := start; i < len(cands); i++ {
			if run, ok := pick(i+1, append(chosen, cands[i])); ok {
				return run, true
			}
		}
		return nil, false
	}
	return pick(0, make([]engine.Card, 0, engine.FoundingRunSize))
}

// findSet returns three unused cards of one rank, preferring high ranks so
// the costly cards leave the hand.
func findSet(hand []engine.Card, used map[uuid.UUID]bool) ([]engine.Card, bool) {
	byRank := make(map[engine.Rank][]engine.Card)
	for _, c := range hand {
		if !used[c.ID] {
			byRank[c.Rank] = append(byRank[c.Rank], c)
		}
	}
	var best []engine.Card
	for _, cards := range byRank {
		if len(cards) < engine.FoundingSetSize {
			continue
		}
		if best == nil || cards[0].Value() > best[0].Value() ||
			(cards[0].Value() == best[0].Value() && cards[0].Rank > best[0].Rank) {
			best = cards[:engine.FoundingSetSize]
		}
	}
	return best, best != nil
}

// FindExtension returns a hand card that extends a meld on the table.
func FindExtension(hand []engine.Card, melds []*engine.Meld, finalRound bool) (uuid.UUID, uuid.UUID, bool) {
	if !finalRound && len(hand) < 2 {
		return uuid.Nil, uuid.Nil, false
	}
	for _, m := range melds {
		base := m.PlainCards()
		for _, c := range hand {
			if engine.ValidateMeld(m.Kind, append(base[:len(base):len(base)], c), false) {
				return m.ID, c.ID, true
			}
		}
	}
	return uuid.Nil, uuid.Nil, false
}
