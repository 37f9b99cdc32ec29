// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ActionsKey is the Redis list game actions are pushed onto, newest first.
const ActionsKey = "game_actions"

// MaxActions bounds the length of the action list.
const MaxActions = 10000

// Rdb is the shared client; nil when Redis is not configured.
var Rdb *redis.Client

// ErrDisabled is returned when Redis is not configured.
var ErrDisabled = errors.New("cache: redis not configured")

// GameActionRecord is one entry in the action history.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Init connects to Redis. On ping failure the client is left nil so the
// server keeps running without an action log.
func Init(addr, password string, db int) error {
	if addr == "" {
		Rdb = nil
		return ErrDisabled
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		Rdb = nil
		return fmt.Errorf("cache: ping %s: %w", addr, err)
	}
	Rdb = client
	logrus.WithField("addr", addr).Info("redis connected")
	return nil
}

// PublishGameAction pushes a record onto the action list and trims it.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return ErrDisabled
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: encode action %d: %w", rec.ActionIndex, err)
	}
	pipe := Rdb.TxPipeline()
	pipe.LPush(ctx, ActionsKey, raw)
	pipe.LTrim(ctx, ActionsKey, 0, MaxActions-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: push action %d: %w", rec.ActionIndex, err)
	}
	return nil
}

// RecentActions returns up to n records for one game, newest first.
func RecentActions(ctx context.Context, gameID uuid.UUID, n int64) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, ErrDisabled
	}
	raws, err := Rdb.LRange(ctx, ActionsKey, 0, MaxActions-1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: read actions: %w", err)
	}
	var out []GameActionRecord
	for _, raw := range raws {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		if rec.GameID != gameID {
			continue
		}
		out = append(out, rec)
		if int64(len(out)) == n {
			break
		}
	}
	return out, nil
}
