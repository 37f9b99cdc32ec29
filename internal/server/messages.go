package server

// Envelope is the wire frame in both directions. Inbound types are either
// one of the Msg constants below or a game action name such as
// "action_draw_stock"; outbound frames are game events or MsgError/MsgPong.
type Envelope struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Transport-level message types handled by the server itself.
const (
	MsgPing   = "ping"
	MsgPong   = "pong"
	MsgSync   = "sync"
	MsgAddBot = "add_bot"
	MsgError  = "error"
)
