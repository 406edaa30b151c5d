package gameserver

import (
	"context"
	"log/slog"
	"maps"
	"strings"

	"github.com/udisondev/pvpguard/internal/audit"
	"github.com/udisondev/pvpguard/internal/game/combat"
	"github.com/udisondev/pvpguard/internal/game/zone"
	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
)

// Connect marks id as online at pos, creating its mode record if needed,
// and greets the player.
func (s *Server) Connect(ctx context.Context, id model.PlayerID, pos model.Position) error {
	return s.Do(ctx, func() {
		// LastSeenTime is left at the last disconnect; only Disconnect and
		// shutdown move it, so the inactivity sweep may revert an online player.
		_, created := s.deps.Controller.OnConnect(id)
		s.players[id] = pos

		slog.Debug("player connected", "player", id, "new", created)
		s.deps.Notifier.Notify(ctx, notify.Notice{
			Player: id,
			Kind:   notify.KindWelcome,
			Text:   notify.TextWelcome,
		})
	})
}

// Disconnect records the player's last-seen time and drops their zone status.
func (s *Server) Disconnect(ctx context.Context, id model.PlayerID) error {
	return s.Do(ctx, func() {
		s.deps.Controller.OnDisconnect(id)
		s.deps.Tracker.Forget(id)
		delete(s.players, id)
		slog.Debug("player disconnected", "player", id)
	})
}

// Move updates the position of a connected player. Unknown players are ignored.
func (s *Server) Move(ctx context.Context, id model.PlayerID, pos model.Position) error {
	return s.Do(ctx, func() {
		if _, ok := s.players[id]; !ok {
			return
		}
		s.players[id] = pos
	})
}

// AddAnchor registers or moves a base anchor.
func (s *Server) AddAnchor(ctx context.Context, a model.BaseAnchor) error {
	return s.Do(ctx, func() {
		s.deps.Anchors.Add(a)
	})
}

// RemoveAnchor unregisters a base anchor.
func (s *Server) RemoveAnchor(ctx context.Context, id uint64) error {
	return s.Do(ctx, func() {
		s.deps.Anchors.Remove(id)
	})
}

// Chat dispatches a chat line. Reports whether it was a known /command, in
// which case the engine should not show it to other players.
func (s *Server) Chat(ctx context.Context, id model.PlayerID, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return false, nil
	}

	var handled bool
	err := s.Do(ctx, func() {
		handled = s.deps.Commands.HandleUserCommand(ctx, id, text[1:])
	})
	return handled, err
}

// Damage authorizes ev, vetoing it in place when denied.
func (s *Server) Damage(ctx context.Context, ev *model.DamageEvent) (combat.Decision, error) {
	var d combat.Decision
	err := s.Do(ctx, func() {
		d = s.damage(ctx, ev)
	})
	return d, err
}

func (s *Server) damage(ctx context.Context, ev *model.DamageEvent) combat.Decision {
	amount := ev.TotalDamage()
	target := ev.Target.Kind.String()

	d := s.deps.Authorizer.Authorize(ev)

	if d.Allowed {
		s.deps.Audit.Record(audit.Entry{
			Type:   audit.TypeDamageAllowed,
			Player: d.Attacker,
			Target: target,
			Amount: amount,
		})
		return d
	}

	s.deps.Audit.Record(audit.Entry{
		Type:   audit.TypeDamageDenied,
		Player: d.Attacker,
		Target: target,
		Rule:   d.Rule,
		Reason: d.Reason,
		Amount: amount,
	})
	if d.Attacker != 0 && d.Notice != "" {
		s.deps.Notifier.Notify(ctx, notify.Notice{
			Player: d.Attacker,
			Kind:   notify.KindDamageDenied,
			Text:   d.Notice,
		})
	}
	return d
}

// SweepModes runs the inactivity reversion now. Returns the reverted ids.
func (s *Server) SweepModes(ctx context.Context) ([]model.PlayerID, error) {
	var reverted []model.PlayerID
	err := s.Do(ctx, func() {
		reverted = s.sweepModes(ctx)
	})
	return reverted, err
}

func (s *Server) sweepModes(context.Context) []model.PlayerID {
	reverted := s.deps.Controller.Sweep()
	for _, id := range reverted {
		s.deps.Audit.Record(audit.Entry{
			Type:   audit.TypeModeReverted,
			Player: id,
			Mode:   model.ModePvP.String(),
		})
	}
	return reverted
}

// SweepZones revalidates the zone status of every connected player now.
func (s *Server) SweepZones(ctx context.Context) error {
	return s.Do(ctx, func() {
		s.sweepZones(ctx)
	})
}

func (s *Server) sweepZones(ctx context.Context) {
	for id, pos := range s.players {
		switch s.deps.Tracker.Revalidate(id, pos) {
		case zone.TransitionEntered:
			s.deps.Notifier.Notify(ctx, notify.Notice{Player: id, Kind: notify.KindZoneEnter, Text: notify.TextZoneEnter})
		case zone.TransitionExited:
			s.deps.Notifier.Notify(ctx, notify.Notice{Player: id, Kind: notify.KindZoneExit, Text: notify.TextZoneExit})
		}
	}
}

// Broadcast sends the periodic reminder to every connected player now.
func (s *Server) Broadcast(ctx context.Context) error {
	return s.Do(ctx, func() {
		s.broadcast(ctx)
	})
}

func (s *Server) broadcast(ctx context.Context) {
	for id := range s.players {
		s.deps.Notifier.Notify(ctx, notify.Notice{
			Player: id,
			Kind:   notify.KindBroadcast,
			Text:   notify.TextBroadcast,
		})
	}
}

// ActivePlayers returns a copy of the connected players and their positions.
func (s *Server) ActivePlayers(ctx context.Context) (map[model.PlayerID]model.Position, error) {
	var out map[model.PlayerID]model.Position
	err := s.Do(ctx, func() {
		out = maps.Clone(s.players)
	})
	return out, err
}
