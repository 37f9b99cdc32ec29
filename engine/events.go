package engine

import "github.com/google/uuid"

// EventType names a change the game made.
type EventType string

const (
	EventGameStarted    EventType = "game_started"
	EventRoundStarted   EventType = "round_started"
	EventHandDealt      EventType = "hand_dealt"
	EventDrewStock      EventType = "drew_stock"
	EventDrewDiscard    EventType = "drew_discard"
	EventCardDrawn      EventType = "card_drawn" // private: the stock card itself
	EventStockRecycled  EventType = "stock_recycled"
	EventCardKept       EventType = "card_kept"
	EventDiscarded      EventType = "discarded"
	EventMeldsSubmitted EventType = "melds_submitted"
	EventMeldExtended   EventType = "meld_extended"
	EventMayIRequested  EventType = "may_i_requested"
	EventMayINextVoter  EventType = "may_i_next_voter"
	EventMayIResponse   EventType = "may_i_response"
	EventMayIResolved   EventType = "may_i_resolved"
	EventMayICardsWon   EventType = "may_i_cards_won" // private: claimed and penalty cards
	EventMayICancelled  EventType = "may_i_cancelled"
	EventTurnAdvanced   EventType = "turn_advanced"
	EventRoundEnded     EventType = "round_ended"
	EventGameEnded      EventType = "game_ended"
)

// Event is one outbound notification. Recipient is uuid.Nil for events every
// seat may see; otherwise only that player may be told.
type Event struct {
	Type      EventType
	PlayerID  uuid.UUID
	Recipient uuid.UUID
	Payload   map[string]any
}

// Private reports whether the event is addressed to a single player.
func (e Event) Private() bool { return e.Recipient != uuid.Nil }

// DrainEvents returns the events produced since the last call and clears the
// buffer.
func (g *Game) DrainEvents() []Event {
	out := g.events
	g.events = nil
	return out
}

func (g *Game) emit(t EventType, actor uuid.UUID, payload map[string]any) {
	g.events = append(g.events, Event{Type: t, PlayerID: actor, Payload: payload})
}

func (g *Game) emitTo(recipient uuid.UUID, t EventType, payload map[string]any) {
	g.events = append(g.events, Event{Type: t, PlayerID: recipient, Recipient: recipient, Payload: payload})
}
