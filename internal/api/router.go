// Package api serves the read-only admin HTTP API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig holds the dependencies of the admin router.
type RouterConfig struct {
	Logger    *slog.Logger
	Modes     ModeSource
	Cooldown  CooldownSource
	Presence  PresenceSource
	Anchors   AnchorSource
	TokenHash string
}

// NewRouter creates the admin router. Everything except /health requires
// a bearer token matching TokenHash.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{
		modes:    cfg.Modes,
		cooldown: cfg.Cooldown,
		presence: cfg.Presence,
		anchors:  cfg.Anchors,
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recovery(logger))
	api.Use(logging(logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(tokenAuth(cfg.TokenHash))
	protected.HandleFunc("/players", h.ListPlayers).Methods(http.MethodGet)
	protected.HandleFunc("/players/{id}", h.GetPlayer).Methods(http.MethodGet)
	protected.HandleFunc("/anchors", h.ListAnchors).Methods(http.MethodGet)

	return r
}
