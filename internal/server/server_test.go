package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
	"github.com/Oxymoron290/Klennedy-May-I/internal/game"
	"github.com/Oxymoron290/Klennedy-May-I/internal/room"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := New(Options{
		Room:        room.Options{Rules: engine.DefaultHouseRules(), BotThink: time.Hour},
		JWTSecret:   "test-secret",
		Development: true,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	return resp, sb.String()
}

func guestToken(t *testing.T, s *Server, name string) string {
	t.Helper()
	_, token, err := s.issuer.IssueGuest(name)
	require.NoError(t, err)
	return token
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	resp, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "mayi_http_requests_total")
}

func TestGuestLogin(t *testing.T) {
	s, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/guest", "application/json", strings.NewReader(`{"name":"alice"}`))
	require.NoError(t, err)
	var out struct {
		Token    string `json:"token"`
		PlayerID string `json:"playerId"`
		Username string `json:"username"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", out.Username)

	user, err := s.issuer.Parse(out.Token)
	require.NoError(t, err)
	assert.Equal(t, out.PlayerID, user.ID.String())

	for _, body := range []string{`{}`, `not json`, `{"name":"` + strings.Repeat("x", 40) + `"}`} {
		resp, err := http.Post(ts.URL+"/api/guest", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestRoomsListing(t *testing.T) {
	s, ts := newTestServer(t)
	_, body := get(t, ts.URL+"/api/rooms")
	assert.JSONEq(t, `{"rooms":[]}`, body)

	user, err := s.issuer.Parse(guestToken(t, s, "alice"))
	require.NoError(t, err)
	_, err = s.Hub().Join("lobby", user, nil, "")
	require.NoError(t, err)

	_, body = get(t, ts.URL+"/api/rooms")
	assert.Contains(t, body, `"id":"lobby"`)
	assert.Contains(t, body, `"alice"`)
}

func TestHistoryEndpointsWithoutBackends(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/api/games/recent")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/api/games/not-a-uuid/actions")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/api/games/"+uuid.NewString()+"/actions")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestActionLimit(t *testing.T) {
	for raw, want := range map[string]int64{
		"":         100,
		"abc":      100,
		"0":        100,
		"-5":       100,
		"99999999": 100,
		"25":       25,
	} {
		assert.Equal(t, want, actionLimit(raw), "limit %q", raw)
	}
}

// The upgrade must hand the client a working socket, not just a 101.
func TestWebsocketUpgradeDeliversFrames(t *testing.T) {
	s, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, guestToken(t, s, "alice"), "r1")
	var first frame
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, string(game.EventPlayerJoined), first.Type)

	require.NoError(t, wsjson.Write(ctx, conn, Envelope{Type: MsgPing}))
	waitFor(t, ctx, conn, MsgPong)

	resp, _ := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "other routes still reach the gin router")
}

func TestWebsocketRejectsBadRequests(t *testing.T) {
	s, ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/ws?room=t")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/ws?token="+guestToken(t, s, "alice"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// frame is an outbound message as a client sees it.
type frame struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
	State   json.RawMessage        `json:"state"`
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server, token, roomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=" + roomID + "&token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// join dials and waits until the player is seated.
func join(t *testing.T, ctx context.Context, ts *httptest.Server, token, roomID string) *websocket.Conn {
	t.Helper()
	conn := dial(t, ctx, ts, token, roomID)
	waitFor(t, ctx, conn, string(game.EventPrivateSyncState))
	return conn
}

// waitFor reads frames until one of the given type arrives.
func waitFor(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) frame {
	t.Helper()
	for {
		var msg frame
		require.NoError(t, wsjson.Read(ctx, conn, &msg), "waiting for %s", typ)
		if msg.Type == typ {
			return msg
		}
	}
}

func TestWebsocketGameFlow(t *testing.T) {
	s, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := join(t, ctx, ts, guestToken(t, s, "alice"), "t")
	guest := join(t, ctx, ts, guestToken(t, s, "bob"), "t")

	require.NoError(t, wsjson.Write(ctx, host, Envelope{Type: MsgPing}))
	waitFor(t, ctx, host, MsgPong)

	require.NoError(t, wsjson.Write(ctx, guest, Envelope{Type: game.ActionStartGame}))
	fail := waitFor(t, ctx, guest, string(game.EventPrivateActionFail))
	assert.Equal(t, "not_host", fail.Payload["kind"])

	require.NoError(t, wsjson.Write(ctx, host, Envelope{Type: game.ActionStartGame}))
	start := waitFor(t, ctx, guest, string(game.EventGameStart))
	assert.EqualValues(t, len(engine.DefaultHouseRules().Schedule), start.Payload["totalRounds"])
	hand := waitFor(t, ctx, guest, string(game.EventPrivateHand))
	assert.Len(t, hand.Payload["hand"], engine.DefaultHouseRules().CardsPerPlayer)

	require.NoError(t, wsjson.Write(ctx, guest, Envelope{Type: MsgAddBot}))
	errMsg := waitFor(t, ctx, guest, MsgError)
	assert.Equal(t, "only the host can add bots", errMsg.Payload["message"])

	r, ok := s.Hub().Get("t")
	require.True(t, ok)
	r.Do(func(g *game.MayIGame) {
		assert.True(t, g.Started())
		assert.Len(t, g.Players, 2)
	})
}

func TestWebsocketHostAddsBot(t *testing.T) {
	s, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := join(t, ctx, ts, guestToken(t, s, "alice"), "t")
	require.NoError(t, wsjson.Write(ctx, host, Envelope{Type: MsgAddBot, Payload: map[string]interface{}{"profile": "hard"}}))
	joined := waitFor(t, ctx, host, string(game.EventPlayerJoined))
	assert.Equal(t, true, joined.Payload["isBot"])

	require.NoError(t, wsjson.Write(ctx, host, Envelope{Type: MsgAddBot, Payload: map[string]interface{}{"profile": "grandmaster"}}))
	errMsg := waitFor(t, ctx, host, MsgError)
	assert.Equal(t, "unknown bot profile", errMsg.Payload["message"])
}

func TestWebsocketDisconnectKeepsSeat(t *testing.T) {
	s, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	aliceToken, bobToken := guestToken(t, s, "alice"), guestToken(t, s, "bob")
	host := join(t, ctx, ts, aliceToken, "t")
	guest := join(t, ctx, ts, bobToken, "t")
	require.NoError(t, wsjson.Write(ctx, host, Envelope{Type: game.ActionStartGame}))
	waitFor(t, ctx, guest, string(game.EventGameStart))

	guest.Close(websocket.StatusNormalClosure, "")
	waitFor(t, ctx, host, string(game.EventPlayerLeft))

	guest = dial(t, ctx, ts, bobToken, "t")
	syncEv := waitFor(t, ctx, guest, string(game.EventPrivateSyncState))
	assert.Contains(t, string(syncEv.State), `"started":true`)

	require.NoError(t, wsjson.Write(ctx, guest, Envelope{Type: MsgSync}))
	waitFor(t, ctx, guest, string(game.EventPrivateSyncState))
}
