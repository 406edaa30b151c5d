package api

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/storage"
)

// ModeSource is the read side of the player mode store.
type ModeSource interface {
	Snapshot() storage.Records
	Lookup(id model.PlayerID) (model.ModeRecord, bool)
}

// CooldownSource reports the remaining switch cooldown of a record.
type CooldownSource interface {
	CooldownRemaining(rec model.ModeRecord) time.Duration
}

// PresenceSource lists the connected players and their positions.
type PresenceSource interface {
	ActivePlayers(ctx context.Context) (map[model.PlayerID]model.Position, error)
}

// AnchorSource lists the registered base anchors.
type AnchorSource interface {
	All() []model.BaseAnchor
}

// Position is the JSON form of model.Position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func positionOf(p model.Position) Position {
	return Position{X: p.X, Y: p.Y, Z: p.Z}
}

// PlayerResponse describes one player's mode state.
// IDs are strings since they exceed the JSON safe integer range.
type PlayerResponse struct {
	ID                string     `json:"id"`
	Mode              string     `json:"mode"`
	LastSwitchTime    *time.Time `json:"last_switch_time,omitempty"`
	LastSeenTime      time.Time  `json:"last_seen_time"`
	SwitchAvailableIn int64      `json:"switch_available_in_seconds"`
	Online            bool       `json:"online"`
	Position          *Position  `json:"position,omitempty"`
}

// PlayersResponse is the body of GET /players.
type PlayersResponse struct {
	Players []PlayerResponse `json:"players"`
	Total   int              `json:"total"`
	Online  int              `json:"online"`
}

// AnchorResponse describes one base anchor.
type AnchorResponse struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
}

// AnchorsResponse is the body of GET /anchors.
type AnchorsResponse struct {
	Anchors []AnchorResponse `json:"anchors"`
}

type handler struct {
	modes    ModeSource
	cooldown CooldownSource
	presence PresenceSource
	anchors  AnchorSource
}

func (h *handler) player(id model.PlayerID, rec model.ModeRecord, online map[model.PlayerID]model.Position) PlayerResponse {
	resp := PlayerResponse{
		ID:           id.String(),
		Mode:         rec.Mode.String(),
		LastSeenTime: rec.LastSeenTime.UTC(),
	}
	if rec.HasSwitched() {
		t := rec.LastSwitchTime.UTC()
		resp.LastSwitchTime = &t
	}
	if h.cooldown != nil {
		resp.SwitchAvailableIn = int64(h.cooldown.CooldownRemaining(rec).Seconds())
	}
	if pos, ok := online[id]; ok {
		p := positionOf(pos)
		resp.Online = true
		resp.Position = &p
	}
	return resp
}

func (h *handler) online(ctx context.Context) (map[model.PlayerID]model.Position, error) {
	if h.presence == nil {
		return nil, nil
	}
	players, err := h.presence.ActivePlayers(ctx)
	if err != nil {
		return nil, newUnavailableError()
	}
	return players, nil
}

// ListPlayers handles GET /players. Optional filters: ?mode=pve|pvp, ?online=true.
func (h *handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var modeFilter *model.Mode
	if raw := q.Get("mode"); raw != "" {
		m, err := model.ParseMode(raw)
		if err != nil {
			WriteError(w, newInvalidRequestError("mode must be pve or pvp"))
			return
		}
		modeFilter = &m
	}
	onlineOnly := q.Get("online") == "true"

	online, err := h.online(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	records := h.modes.Snapshot()
	ids := slices.Sorted(maps.Keys(records))

	resp := PlayersResponse{Players: make([]PlayerResponse, 0, len(ids))}
	for _, id := range ids {
		rec := records[id]
		if modeFilter != nil && rec.Mode != *modeFilter {
			continue
		}
		p := h.player(id, rec, online)
		if onlineOnly && !p.Online {
			continue
		}
		if p.Online {
			resp.Online++
		}
		resp.Players = append(resp.Players, p)
	}
	resp.Total = len(resp.Players)

	writeJSON(w, http.StatusOK, resp)
}

// GetPlayer handles GET /players/{id}.
func (h *handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParsePlayerID(mux.Vars(r)["id"])
	if err != nil || id == 0 {
		WriteError(w, newInvalidRequestError("invalid player id"))
		return
	}

	rec, ok := h.modes.Lookup(id)
	if !ok {
		WriteError(w, ErrPlayerNotFound)
		return
	}

	online, err := h.online(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.player(id, rec, online))
}

// ListAnchors handles GET /anchors.
func (h *handler) ListAnchors(w http.ResponseWriter, r *http.Request) {
	resp := AnchorsResponse{Anchors: []AnchorResponse{}}
	if h.anchors != nil {
		for _, a := range h.anchors.All() {
			resp.Anchors = append(resp.Anchors, AnchorResponse{
				ID:       strconv.FormatUint(a.ID, 10),
				Position: positionOf(a.Position),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
