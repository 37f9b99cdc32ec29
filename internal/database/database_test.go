package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaWithoutDatabase(t *testing.T) {
	DB = nil
	assert.NoError(t, EnsureSchema(context.Background()))
	Close()
}

func TestStoresWithoutDatabase(t *testing.T) {
	DB = nil
	ctx := context.Background()
	gameID := uuid.New()

	assert.ErrorIs(t, StoreRoundResult(ctx, gameID, 0, map[uuid.UUID]int{uuid.New(): 5}), ErrDisabled)
	assert.ErrorIs(t, StoreFinalGameState(ctx, gameID, "room-1", uuid.Nil, map[string]int{}), ErrDisabled)
	_, err := RecentGames(ctx, 10)
	assert.ErrorIs(t, err, ErrDisabled)
}

// Runs only if DATABASE_URL is set.
func TestResultsIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, Connect(ctx, dsn))
	defer Close()
	require.NoError(t, EnsureSchema(ctx))

	gameID, a, b := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, StoreRoundResult(ctx, gameID, 0, map[uuid.UUID]int{a: 10, b: 45}))
	require.NoError(t, StoreRoundResult(ctx, gameID, 0, map[uuid.UUID]int{a: 15, b: 45}), "replay overwrites")

	require.NoError(t, StoreFinalGameState(ctx, gameID, "room-1", a, map[string]interface{}{"totals": map[string]int{a.String(): 15}}))

	games, err := RecentGames(ctx, 50)
	require.NoError(t, err)
	var found bool
	for _, g := range games {
		if g.GameID == gameID {
			found = true
			require.NotNil(t, g.WinnerID)
			assert.Equal(t, a, *g.WinnerID)
			assert.Equal(t, "room-1", g.RoomID)
		}
	}
	assert.True(t, found, "stored game should be listed")
}
