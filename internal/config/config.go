// internal/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the server configuration read from the environment.
type Config struct {
	AppPort     string
	AppEnv      string
	DatabaseURL string // empty disables persistence

	RedisAddr     string // empty disables the action log
	RedisPassword string
	RedisDB       int

	JWTSecret      string
	LogLevel       string
	LogJSON        bool
	AllowedOrigins []string

	BotThink    time.Duration
	TurnTimeout time.Duration // zero disables turn timers
	MaxSeats    int
}

// Development reports whether the server runs with development defaults.
func (c *Config) Development() bool { return c.AppEnv == "development" }

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:       getenv("APP_PORT", "8080"),
		AppEnv:        getenv("APP_ENV", "production"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getint("REDIS_DB", 0),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogJSON:       os.Getenv("LOG_FORMAT") == "json",
		BotThink:      time.Duration(getint("BOT_THINK_MS", 400)) * time.Millisecond,
		TurnTimeout:   time.Duration(getint("TURN_SECONDS", 60)) * time.Second,
		MaxSeats:      getint("MAX_SEATS", 8),
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.JWTSecret == "" {
		if !cfg.Development() {
			return nil, errors.New("JWT_SECRET is not set")
		}
		cfg.JWTSecret = "dev-secret"
	}
	if cfg.MaxSeats < 2 {
		cfg.MaxSeats = 2
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
