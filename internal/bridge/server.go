package bridge

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Path is the websocket endpoint.
const Path = "/bridge"

// Config holds per-connection limits.
type Config struct {
	RateLimit     float64
	RateBurst     int
	WriteTimeout  time.Duration
	PongTimeout   time.Duration
	SendQueueSize int
}

// DefaultConfig returns the stock connection limits.
func DefaultConfig() Config {
	return Config{
		RateLimit:     500,
		RateBurst:     1000,
		WriteTimeout:  5 * time.Second,
		PongTimeout:   60 * time.Second,
		SendQueueSize: 256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RateLimit <= 0 {
		c.RateLimit = d.RateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = d.RateBurst
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = d.PongTimeout
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = d.SendQueueSize
	}
	return c
}

// Server accepts engine websocket connections.
type Server struct {
	cfg      Config
	game     Game
	hub      *Hub
	auth     *Auth
	upgrader websocket.Upgrader
}

// NewServer creates a bridge server delivering events to game.
func NewServer(cfg Config, game Game, hub *Hub, auth *Auth) *Server {
	return &Server{
		cfg:  cfg.withDefaults(),
		game: game,
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Engines authenticate with a bearer token, not by origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Hub returns the connection hub.
func (s *Server) Hub() *Hub { return s.hub }

// Router returns the HTTP handler serving Path.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(Path, s.handleWS).Methods(http.MethodGet)
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token, err := tokenFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	server, err := s.auth.Validate(token)
	if err != nil {
		slog.Warn("bridge auth failed", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("bridge upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newConn(s.hub, s.game, ws, server, s.cfg)
	s.hub.register(c)
	slog.Info("engine connected", "server", server, "remote", r.RemoteAddr)

	go c.writePump()
	c.readPump(r.Context())
}
