// engine_adapter.go: bridge between engine events and client events.
package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
	"github.com/Oxymoron290/Klennedy-May-I/internal/metrics"
)

// eventNames maps engine event types to the names clients see.
var eventNames = map[engine.EventType]GameEventType{
	engine.EventGameStarted:    EventGameStart,
	engine.EventRoundStarted:   EventRoundStart,
	engine.EventHandDealt:      EventPrivateHand,
	engine.EventDrewStock:      EventPlayerDrawStock,
	engine.EventCardDrawn:      EventPrivateDrawStock,
	engine.EventDrewDiscard:    EventPlayerDrawDiscard,
	engine.EventStockRecycled:  EventStockRecycled,
	engine.EventCardKept:       EventPlayerKeepCard,
	engine.EventDiscarded:      EventPlayerDiscard,
	engine.EventMeldsSubmitted: EventPlayerMelds,
	engine.EventMeldExtended:   EventPlayerMeldExtend,
	engine.EventMayIRequested:  EventMayIRequest,
	engine.EventMayINextVoter:  EventMayINextVoter,
	engine.EventMayIResponse:   EventMayIResponse,
	engine.EventMayIResolved:   EventMayIResolved,
	engine.EventMayICardsWon:   EventPrivateMayICards,
	engine.EventMayICancelled:  EventMayICancelled,
	engine.EventTurnAdvanced:   EventGamePlayerTurn,
	engine.EventRoundEnded:     EventRoundEnd,
	engine.EventGameEnded:      EventGameEnd,
}

// emitEngineEvents forwards drained engine events to clients, keeping
// private events with their recipient. Side effects tied to particular
// events (metrics, round persistence) happen here too.
func (g *MayIGame) emitEngineEvents(events []engine.Event) {
	for _, ev := range events {
		name, ok := eventNames[ev.Type]
		if !ok {
			g.log.WithField("type", ev.Type).Warn("unmapped engine event")
			continue
		}
		// game_start is announced by StartGame with session details.
		if ev.Type == engine.EventGameStarted {
			continue
		}

		switch ev.Type {
		case engine.EventMayIResolved:
			if outcome, ok := ev.Payload["outcome"].(engine.MayIOutcome); ok {
				metrics.MayIResolutions.WithLabelValues(string(outcome)).Inc()
			}
		case engine.EventMayICancelled:
			metrics.MayIResolutions.WithLabelValues(string(engine.MayICancelled)).Inc()
		case engine.EventRoundEnded:
			metrics.RoundsCompleted.Inc()
			round, _ := ev.Payload["round"].(int)
			if scores, ok := ev.Payload["scores"].(map[uuid.UUID]int); ok {
				g.persistRoundResult(round, scores)
			}
			g.logAction(uuid.Nil, string(EventRoundEnd), map[string]interface{}{"round": round})
		}

		out := GameEvent{Type: name, Payload: ev.Payload}
		if ev.PlayerID != uuid.Nil {
			out.User = &EventUser{ID: ev.PlayerID}
		}
		if ev.Private() {
			g.fireEventToPlayer(ev.Recipient, out)
		} else {
			g.fireEvent(out)
		}
	}
}

// parseUUIDField reads a uuid string from an action payload.
func parseUUIDField(payload map[string]interface{}, key string) (uuid.UUID, error) {
	raw, ok := payload[key].(string)
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("missing %q", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %q: %w", key, err)
	}
	return id, nil
}

// parseUUIDList reads a list of uuid strings from an action payload.
func parseUUIDList(raw interface{}, key string) ([]uuid.UUID, error) {
	list, ok := raw.([]interface{})
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("missing %q", key)
	}
	ids := make([]uuid.UUID, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("invalid entry in %q", key)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid entry in %q: %w", key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseOptionalIndex reads an optional insert position. JSON numbers arrive
// as float64.
func parseOptionalIndex(payload map[string]interface{}, key string) (*int, error) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return nil, nil
	}
	f, ok := raw.(float64)
	if !ok || f < 0 || f != float64(int(f)) {
		return nil, fmt.Errorf("invalid %q", key)
	}
	idx := int(f)
	return &idx, nil
}

// parseMeldSpecs reads the melds array of a submit_melds action.
func parseMeldSpecs(payload map[string]interface{}) ([]engine.MeldSpec, error) {
	list, ok := payload["melds"].([]interface{})
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("missing %q", "melds")
	}
	specs := make([]engine.MeldSpec, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("meld %d: not an object", i)
		}
		kind, _ := m["type"].(string)
		switch engine.MeldKind(kind) {
		case engine.MeldSet, engine.MeldRun:
		default:
			return nil, fmt.Errorf("meld %d: unknown type %q", i, kind)
		}
		ids, err := parseUUIDList(m["cardIds"], "cardIds")
		if err != nil {
			return nil, fmt.Errorf("meld %d: %w", i, err)
		}
		specs = append(specs, engine.MeldSpec{Kind: engine.MeldKind(kind), CardIDs: ids})
	}
	return specs, nil
}
