// internal/models/models.go
package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// User is the identity behind a seat, as issued by the guest login.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Player is a seat in a room. Bots have no connection and are always
// treated as connected.
type Player struct {
	// ID is the seat's player id; equal to User.ID for humans.
	ID uuid.UUID

	// Connected is false while a human's socket is down.
	Connected bool

	// Conn is the live socket, nil for bots and disconnected players.
	Conn *websocket.Conn

	User *User

	// IsBot marks an automated opponent.
	IsBot bool
}

// Name returns the display name for the seat.
func (p *Player) Name() string {
	if p.User == nil {
		return p.ID.String()[:8]
	}
	return p.User.Username
}

// GameAction is one inbound action envelope from a client or bot.
type GameAction struct {
	ActionType string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
