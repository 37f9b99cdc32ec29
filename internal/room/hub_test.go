package room

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
	"github.com/Oxymoron290/Klennedy-May-I/internal/bot"
	"github.com/Oxymoron290/Klennedy-May-I/internal/game"
	"github.com/Oxymoron290/Klennedy-May-I/internal/models"
)

type recorder struct {
	mu     sync.Mutex
	events map[uuid.UUID][]game.GameEvent
}

func (r *recorder) deliver(playerID uuid.UUID, ev game.GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[playerID] = append(r.events[playerID], ev)
}

func (r *recorder) count(playerID uuid.UUID, t game.GameEventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events[playerID] {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func newTestHub(maxSeats int) (*Hub, *recorder) {
	rec := &recorder{events: make(map[uuid.UUID][]game.GameEvent)}
	h := NewHub(Options{
		Rules:    engine.DefaultHouseRules(),
		BotThink: time.Hour,
		MaxSeats: maxSeats,
	}, rec.deliver)
	return h, rec
}

func user(name string) *models.User {
	return &models.User{ID: uuid.New(), Username: name}
}

func TestJoinCreatesRoomAndFirstJoinerHosts(t *testing.T) {
	h, rec := newTestHub(8)
	alice, bob := user("alice"), user("bob")

	r, err := h.Join("table", alice, nil, "")
	require.NoError(t, err)
	_, err = h.Join("table", bob, nil, "")
	require.NoError(t, err)

	r.Do(func(g *game.MayIGame) {
		assert.Equal(t, alice.ID, g.HostID())
		assert.Len(t, g.Players, 2)
	})
	assert.Positive(t, rec.count(alice.ID, game.EventPlayerJoined))
	assert.Positive(t, rec.count(bob.ID, game.EventPrivateSyncState))

	got, ok := h.Get("table")
	require.True(t, ok)
	assert.Same(t, r, got)
}

func TestJoinChecksPassword(t *testing.T) {
	h, _ := newTestHub(8)
	_, err := h.Join("secret", user("alice"), nil, "hunter2")
	require.NoError(t, err)

	_, err = h.Join("secret", user("bob"), nil, "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = h.Join("secret", user("carol"), nil, "hunter2")
	assert.NoError(t, err)

	list := h.List()
	require.Len(t, list, 1)
	assert.True(t, list[0].Locked)
	assert.Equal(t, 2, list[0].Humans)
}

func TestJoinFullAndStartedRooms(t *testing.T) {
	h, _ := newTestHub(2)
	alice, bob := user("alice"), user("bob")
	r, err := h.Join("t", alice, nil, "")
	require.NoError(t, err)
	_, err = h.Join("t", bob, nil, "")
	require.NoError(t, err)

	_, err = h.Join("t", user("carol"), nil, "")
	assert.ErrorIs(t, err, ErrRoomFull)

	r.Do(func(g *game.MayIGame) {
		require.NoError(t, g.HandlePlayerAction(alice.ID, models.GameAction{ActionType: game.ActionStartGame}))
	})
	_, err = h.Join("t", user("dave"), nil, "")
	assert.ErrorIs(t, err, ErrGameStarted)
	_, err = h.AddBot("t", bot.EasyBot)
	assert.ErrorIs(t, err, ErrGameStarted)
}

func TestLeaveDuringGameKeepsSeat(t *testing.T) {
	h, rec := newTestHub(8)
	alice, bob := user("alice"), user("bob")
	r, err := h.Join("t", alice, nil, "")
	require.NoError(t, err)
	_, err = h.Join("t", bob, nil, "")
	require.NoError(t, err)
	r.Do(func(g *game.MayIGame) { require.NoError(t, g.StartGame()) })

	h.Leave("t", bob.ID)
	r.Do(func(g *game.MayIGame) {
		require.NotNil(t, g.Player(bob.ID))
		assert.False(t, g.Player(bob.ID).Connected)
	})

	before := rec.count(bob.ID, game.EventPrivateSyncState)
	_, err = h.Join("t", bob, nil, "")
	require.NoError(t, err, "a seated player can always come back")
	assert.Greater(t, rec.count(bob.ID, game.EventPrivateSyncState), before)
}

func TestRoomClosesWhenLastHumanLeaves(t *testing.T) {
	h, _ := newTestHub(8)
	alice := user("alice")
	_, err := h.Join("t", alice, nil, "")
	require.NoError(t, err)
	_, err = h.AddBot("t", bot.HardBot)
	require.NoError(t, err)

	h.Leave("t", alice.ID)
	_, ok := h.Get("t")
	assert.False(t, ok, "bots alone do not keep a room open")
	assert.Empty(t, h.List())

	_, err = h.AddBot("t", bot.EasyBot)
	assert.ErrorIs(t, err, ErrNoRoom)
}

func TestAddBotSeatsAndRuns(t *testing.T) {
	h, _ := newTestHub(3)
	alice := user("alice")
	r, err := h.Join("t", alice, nil, "")
	require.NoError(t, err)

	p, err := h.AddBot("t", bot.EasyBot)
	require.NoError(t, err)
	assert.True(t, p.IsBot)
	assert.Contains(t, p.Name(), "easy bot")
	_, err = h.AddBot("t", bot.HardBot)
	require.NoError(t, err)
	_, err = h.AddBot("t", bot.HardBot)
	assert.ErrorIs(t, err, ErrRoomFull)

	r.Do(func(g *game.MayIGame) {
		assert.Equal(t, alice.ID, g.HostID(), "bots never host")
		assert.Equal(t, 2, r.Bots.Len())
	})

	list := h.List()
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Humans)
	assert.Equal(t, 2, list[0].Bots)
	h.Close()
	assert.Empty(t, h.List())
}
