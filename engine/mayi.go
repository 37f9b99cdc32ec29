package engine

import "github.com/google/uuid"

// MayIOutcome is the state of a May I request.
type MayIOutcome string

const (
	MayIPending   MayIOutcome = "pending"
	MayIGranted   MayIOutcome = "granted"   // requester won the card
	MayIDenied    MayIOutcome = "denied"    // a voter claimed it instead
	MayICancelled MayIOutcome = "cancelled" // withdrawn or the card was drawn
)

// MayIResponse is one recorded vote.
type MayIResponse struct {
	VoterID uuid.UUID `json:"voterId"`
	Accept  bool      `json:"accept"`
}

// MayIRequest is an out-of-turn claim on the top discard. Voters answer one at
// a time in seat order; the first denial hands the card to the denier, and
// acceptance by every voter hands it to the requester.
type MayIRequest struct {
	ID             uuid.UUID      `json:"id"`
	RequesterID    uuid.UUID      `json:"requesterId"`
	Card           Card           `json:"card"`
	Voters         []uuid.UUID    `json:"voters"`
	NextVoterIndex int            `json:"nextVoterIndex"`
	Responses      []MayIResponse `json:"responses"`
	Outcome        MayIOutcome    `json:"outcome"`
	WinnerID       uuid.UUID      `json:"winnerId,omitempty"`
	PenaltyDrawn   bool           `json:"penaltyDrawn"`
}

// NextVoter returns the voter whose answer is awaited.
func (r *MayIRequest) NextVoter() (uuid.UUID, bool) {
	if r.Outcome != MayIPending || r.NextVoterIndex >= len(r.Voters) {
		return uuid.Nil, false
	}
	return r.Voters[r.NextVoterIndex], true
}

func (r *MayIRequest) clone() *MayIRequest {
	c := *r
	c.Voters = append([]uuid.UUID(nil), r.Voters...)
	c.Responses = append([]MayIResponse(nil), r.Responses...)
	return &c
}

// RequestMayI asks to take the top discard out of turn. The requester must
// not be the turn player and must not be down yet. Only one request may be
// open at a time. With nobody to ask, the request is granted at once.
func (g *Game) RequestMayI(playerID uuid.UUID) (Result, error) {
	if g.Phase != PhasePlaying {
		return Result{}, ruleErr(KindSequence, "game is not in progress")
	}
	p := g.playerByID(playerID)
	if p == nil {
		return Result{}, ruleErr(KindOwnership, "player %s is not seated", playerID)
	}
	if g.CurrentPlayer().ID == playerID {
		return Result{}, ruleErr(KindOutOfTurn, "the turn player cannot May I")
	}
	if g.IsDown(playerID) {
		return Result{}, ruleErr(KindSequence, "players who are down cannot May I")
	}
	if g.MayI != nil {
		return Result{}, ruleErr(KindSequence, "a May I request is already pending")
	}
	card, ok := g.DiscardTop()
	if !ok {
		return Result{}, ruleErr(KindResourceState, "discard pile is empty")
	}

	req := &MayIRequest{
		ID:          g.newID(),
		RequesterID: playerID,
		Card:        card,
		Voters:      g.mayIVoters(playerID),
		Outcome:     MayIPending,
	}
	g.MayI = req
	g.emit(EventMayIRequested, playerID, map[string]any{
		"requestId": req.ID,
		"card":      card,
		"voters":    append([]uuid.UUID(nil), req.Voters...),
	})

	if len(req.Voters) == 0 {
		g.resolveMayI(playerID)
	} else {
		g.emit(EventMayINextVoter, playerID, map[string]any{"requestId": req.ID, "voterId": req.Voters[0]})
	}
	g.mustConserve()
	res := g.result()
	res.Request = req.clone()
	return res, nil
}

// mayIVoters lists who must answer a request, in order. Everyone not yet
// down who would act before the requester gets a say: the seats strictly
// between the turn player and the requester. A request by the turn player
// would be put to every other player not yet down.
func (g *Game) mayIVoters(requesterID uuid.UUID) []uuid.UUID {
	var voters []uuid.UUID
	if g.CurrentPlayer().ID == requesterID {
		for _, p := range g.Players {
			if p.ID != requesterID && !g.IsDown(p.ID) {
				voters = append(voters, p.ID)
			}
		}
		return voters
	}
	for seat := g.NextSeat(g.CurrentTurn); g.Players[seat].ID != requesterID; seat = g.NextSeat(seat) {
		if id := g.Players[seat].ID; !g.IsDown(id) {
			voters = append(voters, id)
		}
	}
	return voters
}

// RespondToMayI records the next voter's answer. A denial resolves the
// request for the denier; the last acceptance resolves it for the requester.
func (g *Game) RespondToMayI(voterID, requestID uuid.UUID, accept bool) (Result, error) {
	req, err := g.openRequest(requestID)
	if err != nil {
		return Result{}, err
	}
	next, ok := req.NextVoter()
	if !ok {
		return Result{}, ruleErr(KindVotingOrder, "no vote is expected")
	}
	if next != voterID {
		return Result{}, ruleErr(KindVotingOrder, "waiting on %s, not %s", next, voterID)
	}

	req.Responses = append(req.Responses, MayIResponse{VoterID: voterID, Accept: accept})
	req.NextVoterIndex++
	g.emit(EventMayIResponse, voterID, map[string]any{"requestId": req.ID, "accept": accept})

	switch {
	case !accept:
		g.resolveMayI(voterID)
	case req.NextVoterIndex == len(req.Voters):
		g.resolveMayI(req.RequesterID)
	default:
		g.emit(EventMayINextVoter, req.RequesterID, map[string]any{
			"requestId": req.ID,
			"voterId":   req.Voters[req.NextVoterIndex],
		})
	}
	g.mustConserve()
	res := g.result()
	res.Request = req.clone()
	return res, nil
}

// CancelMayI withdraws an open request. Only its requester may cancel.
func (g *Game) CancelMayI(playerID, requestID uuid.UUID) (Result, error) {
	req, err := g.openRequest(requestID)
	if err != nil {
		return Result{}, err
	}
	if req.RequesterID != playerID {
		return Result{}, ruleErr(KindOwnership, "only the requester can cancel a May I")
	}
	g.cancelMayI("withdrawn")
	g.mustConserve()
	res := g.result()
	res.Request = req.clone()
	return res, nil
}

func (g *Game) openRequest(requestID uuid.UUID) (*MayIRequest, error) {
	if g.Phase != PhasePlaying {
		return nil, ruleErr(KindSequence, "game is not in progress")
	}
	if g.MayI == nil {
		return nil, ruleErr(KindVotingOrder, "no May I request is pending")
	}
	if g.MayI.ID != requestID {
		return nil, ruleErr(KindVotingOrder, "request %s is not the pending one", requestID)
	}
	return g.MayI, nil
}

func (g *Game) cancelMayI(reason string) {
	req := g.MayI
	req.Outcome = MayICancelled
	g.MayI = nil
	g.emit(EventMayICancelled, req.RequesterID, map[string]any{"requestId": req.ID, "reason": reason})
}

// resolveMayI gives the claimed card, plus one penalty card from the stock
// when there is one, to the winner. The winner may not meld until their own
// next turn and their expected hand size grows by two.
func (g *Game) resolveMayI(winnerID uuid.UUID) {
	req := g.MayI
	winner := g.playerByID(winnerID)

	won := make([]Card, 0, 2)
	if i := indexOfCard(g.DiscardPile, req.Card.ID); i >= 0 {
		won = append(won, g.DiscardPile[i])
		g.DiscardPile = removeAt(g.DiscardPile, i)
	}
	if len(g.DrawPile) > 0 {
		top := len(g.DrawPile) - 1
		won = append(won, g.DrawPile[top])
		g.DrawPile = g.DrawPile[:top]
		req.PenaltyDrawn = true
	}
	winner.Hand = append(winner.Hand, won...)
	winner.MayIRestricted = true
	winner.ExpectedHandSize += 2

	req.WinnerID = winnerID
	if winnerID == req.RequesterID {
		req.Outcome = MayIGranted
	} else {
		req.Outcome = MayIDenied
	}
	g.MayI = nil

	g.emit(EventMayIResolved, winnerID, map[string]any{
		"requestId":    req.ID,
		"requesterId":  req.RequesterID,
		"winnerId":     winnerID,
		"outcome":      req.Outcome,
		"card":         req.Card,
		"penaltyDrawn": req.PenaltyDrawn,
		"handCount":    len(winner.Hand),
	})
	g.emitTo(winnerID, EventMayICardsWon, map[string]any{"requestId": req.ID, "cards": won})
}
