// Package server exposes the HTTP API and the websocket game transport.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Oxymoron290/Klennedy-May-I/internal/auth"
	"github.com/Oxymoron290/Klennedy-May-I/internal/cache"
	"github.com/Oxymoron290/Klennedy-May-I/internal/database"
	"github.com/Oxymoron290/Klennedy-May-I/internal/metrics"
	"github.com/Oxymoron290/Klennedy-May-I/internal/room"
)

// Server owns the room hub and the live websocket clients.
type Server struct {
	hub     *room.Hub
	issuer  *auth.Issuer
	origins []string
	dev     bool

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

// Options configures a Server.
type Options struct {
	Room           room.Options
	JWTSecret      string
	AllowedOrigins []string
	Development    bool
}

// New builds a server and its hub.
func New(opts Options) *Server {
	s := &Server{
		issuer:  auth.NewIssuer(opts.JWTSecret),
		origins: opts.AllowedOrigins,
		dev:     opts.Development,
		clients: make(map[uuid.UUID]*client),
	}
	s.hub = room.NewHub(opts.Room, s.deliver)
	return s
}

// Hub returns the server's room registry.
func (s *Server) Hub() *room.Hub { return s.hub }

// Close shuts all rooms down.
func (s *Server) Close() { s.hub.Close() }

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.POST("/guest", s.handleGuest)
	api.GET("/rooms", s.handleRooms)
	api.GET("/games/recent", s.handleRecentGames)
	api.GET("/games/:id/actions", s.handleGameActions)
	return r
}

// Handler serves /ws on net/http directly and everything else through the
// gin router. The websocket upgrade needs the raw http.ResponseWriter: gin's
// writer refuses to be hijacked once the 101 headers are flushed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/", s.Router())
	return mux
}

// requestLogger logs each request through logrus and counts it.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"route":   route,
			"status":  code,
			"latency": time.Since(start),
		}).Debug("http request")
	}
}

type guestRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) handleGuest(c *gin.Context) {
	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	user, token, err := s.issuer.IssueGuest(req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logrus.WithError(err).Error("issue guest token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "playerId": user.ID, "username": user.Username})
}

func (s *Server) handleRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.hub.List()})
}

func (s *Server) handleRecentGames(c *gin.Context) {
	if database.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	games, err := database.RecentGames(ctx, limit)
	if errors.Is(err, database.ErrDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("list recent games")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list games"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (s *Server) handleGameActions(c *gin.Context) {
	gameID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}
	limit := actionLimit(c.Query("limit"))
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	actions, err := cache.RecentActions(ctx, gameID, limit)
	if errors.Is(err, cache.ErrDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "action history disabled"})
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("game", gameID).Error("read game actions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read actions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// actionLimit parses the history limit, falling back to 100 when it is
// missing, malformed or out of range.
func actionLimit(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 || n > cache.MaxActions {
		return 100
	}
	return n
}

// bearerToken returns the token from the query string or the
// Authorization header. Browsers cannot set headers on websocket
// handshakes, hence the query form.
func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}
