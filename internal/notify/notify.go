// Package notify delivers player-facing feedback produced by the mode
// controller, the zone tracker and the combat authorizer.
package notify

import (
	"context"
	"log/slog"

	"github.com/udisondev/pvpguard/internal/model"
)

// Kind classifies a Notice.
type Kind string

const (
	KindWelcome      Kind = "welcome"
	KindHelp         Kind = "help"
	KindSwitchOK     Kind = "switch_ok"
	KindSwitchDenied Kind = "switch_denied"
	KindDamageDenied Kind = "damage_denied"
	KindZoneEnter    Kind = "zone_enter"
	KindZoneExit     Kind = "zone_exit"
	KindBroadcast    Kind = "broadcast"
	KindCommandError Kind = "command_error"
)

// Notice is one chat message for a player. Player 0 addresses every
// connected player.
type Notice struct {
	Player model.PlayerID `json:"player"`
	Kind   Kind           `json:"kind"`
	Text   string         `json:"text"`
}

// Notifier delivers notices. Implementations must not block the caller for
// long: Notify is called from the game loop.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notice)

// Notify calls f.
func (f Func) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Fanout delivers every notice to all wrapped notifiers in order.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, n Notice) {
	for _, nt := range f {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

// Log writes notices to slog at debug level.
type Log struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l Log) Notify(ctx context.Context, n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "notice",
		"player", n.Player,
		"kind", n.Kind,
		"text", n.Text)
}

// Nop discards notices.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Notice) {}
