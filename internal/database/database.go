// internal/database/database.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DB is the shared pool; nil when persistence is not configured.
var DB *pgxpool.Pool

// ErrDisabled is returned when no pool is configured or it was closed.
var ErrDisabled = errors.New("database: persistence not configured")

const schema = `
CREATE TABLE IF NOT EXISTS round_results (
	game_id    UUID        NOT NULL,
	round      INT         NOT NULL,
	scores     JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (game_id, round)
);
CREATE TABLE IF NOT EXISTS game_results (
	game_id    UUID PRIMARY KEY,
	room_id    TEXT        NOT NULL,
	winner_id  UUID,
	final      JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Connect opens the pool and pings it.
func Connect(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("database: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("database: ping: %w", err)
	}
	DB = pool
	logrus.Info("database connected")
	return nil
}

// Close releases the pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

// EnsureSchema creates the result tables if they are missing.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return nil
	}
	if _, err := DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("database: ensure schema: %w", err)
	}
	return nil
}

// StoreRoundResult records the scores of one finished round. Replaying the
// same round overwrites the earlier row.
func StoreRoundResult(ctx context.Context, gameID uuid.UUID, round int, scores map[uuid.UUID]int) error {
	pool := DB
	if pool == nil {
		return ErrDisabled
	}
	raw, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("database: encode round %d scores: %w", round, err)
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO round_results (game_id, round, scores)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (game_id, round) DO UPDATE SET scores = EXCLUDED.scores`,
		gameID, round, raw,
	)
	if err != nil {
		return fmt.Errorf("database: store round %d of %s: %w", round, gameID, err)
	}
	return nil
}

// StoreFinalGameState records the final standings of a game.
func StoreFinalGameState(ctx context.Context, gameID uuid.UUID, roomID string, winner uuid.UUID, final interface{}) error {
	pool := DB
	if pool == nil {
		return ErrDisabled
	}
	raw, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("database: encode final state of %s: %w", gameID, err)
	}
	var winnerArg interface{}
	if winner != uuid.Nil {
		winnerArg = winner
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO game_results (game_id, room_id, winner_id, final)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (game_id) DO NOTHING`,
		gameID, roomID, winnerArg, raw,
	)
	if err != nil {
		return fmt.Errorf("database: store final state of %s: %w", gameID, err)
	}
	return nil
}

// GameSummary is one row of the recent games listing.
type GameSummary struct {
	GameID    uuid.UUID       `json:"gameId"`
	RoomID    string          `json:"roomId"`
	WinnerID  *uuid.UUID      `json:"winnerId,omitempty"`
	Final     json.RawMessage `json:"final"`
	CreatedAt time.Time       `json:"createdAt"`
}

// RecentGames lists finished games, newest first.
func RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	pool := DB
	if pool == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := pool.Query(ctx,
		`SELECT game_id, room_id, winner_id, final, created_at
		 FROM game_results
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("database: recent games: %w", err)
	}
	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GameSummary, error) {
		var s GameSummary
		err := row.Scan(&s.GameID, &s.RoomID, &s.WinnerID, &s.Final, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("database: scan recent games: %w", err)
	}
	return games, nil
}
