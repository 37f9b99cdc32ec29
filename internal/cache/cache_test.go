package cache

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutRedis(t *testing.T) {
	Rdb = nil
	err := PublishGameAction(context.Background(), GameActionRecord{GameID: uuid.New()})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = RecentActions(context.Background(), uuid.New(), 5)
	assert.ErrorIs(t, err, ErrDisabled)

	assert.ErrorIs(t, Init("", "", 0), ErrDisabled)
	assert.Nil(t, Rdb)
}

// Runs only if REDIS_ADDR is set.
func TestPublishGameActionIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	require.NoError(t, Init(addr, os.Getenv("REDIS_PASSWORD"), db))
	defer func() { _ = Rdb.Close(); Rdb = nil }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gameID := uuid.New()
	for i := 1; i <= 3; i++ {
		require.NoError(t, PublishGameAction(ctx, GameActionRecord{
			GameID:        gameID,
			ActionIndex:   i,
			ActionType:    "action_draw_stock",
			ActionPayload: map[string]interface{}{"i": i},
			Timestamp:     time.Now().UnixMilli(),
		}))
	}

	recs, err := RecentActions(ctx, gameID, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 3, recs[0].ActionIndex, "newest first")
	assert.Equal(t, 2, recs[1].ActionIndex)
}
