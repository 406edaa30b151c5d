// Package admin dispatches chat commands typed by players.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
)

// UserCommand is a chat command available to every player (/command).
type UserCommand interface {
	// Handle executes the command. params is the rest of the message after the name.
	Handle(ctx context.Context, player model.PlayerID, params string) error
	// Names returns all registered command names (without / prefix).
	Names() []string
}

// Handler dispatches user commands.
// Commands are registered once at startup, then read-only.
type Handler struct {
	mu       sync.RWMutex
	userCmds map[string]UserCommand // lowercase name -> command
	notifier notify.Notifier
}

// NewHandler creates a handler reporting command errors through notifier.
func NewHandler(notifier notify.Notifier) *Handler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Handler{
		userCmds: make(map[string]UserCommand, 8),
		notifier: notifier,
	}
}

// RegisterUser registers a user command under all its names.
// Names are lowercased for case-insensitive lookup.
func (h *Handler) RegisterUser(cmd UserCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range cmd.Names() {
		h.userCmds[strings.ToLower(name)] = cmd
	}
}

// HandleUserCommand processes a message starting with /.
// text is the full message WITHOUT the / prefix.
// Returns true if a command was found and executed.
func (h *Handler) HandleUserCommand(ctx context.Context, player model.PlayerID, text string) bool {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return false
	}
	cmdName := strings.ToLower(parts[0])

	h.mu.RLock()
	cmd, ok := h.userCmds[cmdName]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	params := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), parts[0]))

	if err := cmd.Handle(ctx, player, params); err != nil {
		h.notifier.Notify(ctx, notify.Notice{
			Player: player,
			Kind:   notify.KindCommandError,
			Text:   fmt.Sprintf("Command error: %s", err),
		})
		slog.Error("user command failed",
			"player", player,
			"command", text,
			"error", err)
	}

	return true
}

// UserCommandCount returns number of registered user command names.
func (h *Handler) UserCommandCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userCmds)
}

// UserCommandNames returns the registered names, sorted.
func (h *Handler) UserCommandNames() []string {
	h.mu.RLock()
	names := make([]string, 0, len(h.userCmds))
	for name := range h.userCmds {
		names = append(names, name)
	}
	h.mu.RUnlock()

	slices.Sort(names)
	return names
}
