package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Oxymoron290/Klennedy-May-I/engine"
	"github.com/Oxymoron290/Klennedy-May-I/internal/cache"
	"github.com/Oxymoron290/Klennedy-May-I/internal/config"
	"github.com/Oxymoron290/Klennedy-May-I/internal/database"
	"github.com/Oxymoron290/Klennedy-May-I/internal/logger"
	"github.com/Oxymoron290/Klennedy-May-I/internal/room"
	"github.com/Oxymoron290/Klennedy-May-I/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
			logrus.WithError(err).Fatal("connect database")
		}
		if err := database.EnsureSchema(ctx); err != nil {
			logrus.WithError(err).Fatal("ensure schema")
		}
		cancel()
		defer database.Close()
	} else {
		logrus.Warn("DATABASE_URL not set, game results will not be stored")
	}

	if cfg.RedisAddr != "" {
		if err := cache.Init(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
			logrus.WithError(err).Warn("redis unavailable, action history disabled")
		}
	}

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(server.Options{
		Room: room.Options{
			Rules:        engine.DefaultHouseRules(),
			TurnDuration: cfg.TurnTimeout,
			BotThink:     cfg.BotThink,
			MaxSeats:     cfg.MaxSeats,
		},
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Development:    cfg.Development(),
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.AppPort).Info("server started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server...")
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("server forced to shutdown")
	}
	logrus.Info("server exited")
}
