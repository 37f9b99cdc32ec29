package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("BOT_THINK_MS", "")
	t.Setenv("MAX_SEATS", "")
	t.Setenv("TURN_SECONDS", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "dev-secret", cfg.JWTSecret)
	assert.Equal(t, 400*time.Millisecond, cfg.BotThink)
	assert.Equal(t, 8, cfg.MaxSeats)
	assert.Equal(t, 60*time.Second, cfg.TurnTimeout)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("MAX_SEATS", "1")
	t.Setenv("BOT_THINK_MS", "bogus")
	t.Setenv("TURN_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2, cfg.MaxSeats, "seat cap never drops below two")
	assert.Equal(t, 400*time.Millisecond, cfg.BotThink, "bad values fall back to the default")
	assert.Zero(t, cfg.TurnTimeout)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}
