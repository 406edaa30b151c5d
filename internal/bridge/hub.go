package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
)

// Hub tracks engine connections and which connection each player is on.
// It delivers notices to the right engine and implements notify.Notifier.
type Hub struct {
	mu      sync.RWMutex
	conns   map[*Conn]struct{}
	players map[model.PlayerID]*Conn
}

var _ notify.Notifier = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:   make(map[*Conn]struct{}),
		players: make(map[model.PlayerID]*Conn),
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

// unregister removes c and returns the players that were routed to it.
func (h *Hub) unregister(c *Conn) []model.PlayerID {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, c)
	var orphaned []model.PlayerID
	for id, owner := range h.players {
		if owner == c {
			delete(h.players, id)
			orphaned = append(orphaned, id)
		}
	}
	return orphaned
}

func (h *Hub) bind(id model.PlayerID, c *Conn) {
	h.mu.Lock()
	h.players[id] = c
	h.mu.Unlock()
}

func (h *Hub) unbind(id model.PlayerID, c *Conn) {
	h.mu.Lock()
	if h.players[id] == c {
		delete(h.players, id)
	}
	h.mu.Unlock()
}

// Notify routes n to the engine the player is connected through. Player 0
// goes to every engine. Notices for unknown players are dropped.
func (h *Hub) Notify(_ context.Context, n notify.Notice) {
	msg := Message{Type: MsgNotice, Player: n.Player, Notice: &n}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if n.Player == 0 {
		for c := range h.conns {
			c.enqueue(msg)
		}
		return
	}

	c, ok := h.players[n.Player]
	if !ok {
		slog.Debug("dropping notice for unrouted player", "player", n.Player, "kind", n.Kind)
		return
	}
	c.enqueue(msg)
}

// Count returns the number of engine connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every engine connection.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}
