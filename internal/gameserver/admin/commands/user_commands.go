package commands

import (
	"context"

	"github.com/udisondev/pvpguard/internal/audit"
	"github.com/udisondev/pvpguard/internal/game/pvpmode"
	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
)

// ModeSwitcher performs manual mode switches.
// Interface to keep commands independent of the controller's storage.
type ModeSwitcher interface {
	RequestSwitch(id model.PlayerID, target model.Mode) pvpmode.SwitchResult
	Config() pvpmode.Config
}

// SwitchMode handles /pve and /pvp.
type SwitchMode struct {
	target   model.Mode
	switcher ModeSwitcher
	notifier notify.Notifier
	audit    audit.Recorder
}

// NewSwitchMode creates the command switching to target.
func NewSwitchMode(target model.Mode, switcher ModeSwitcher, notifier notify.Notifier, rec audit.Recorder) *SwitchMode {
	return &SwitchMode{target: target, switcher: switcher, notifier: notifier, audit: rec}
}

func (c *SwitchMode) Names() []string { return []string{c.target.String()} }

func (c *SwitchMode) Handle(ctx context.Context, player model.PlayerID, _ string) error {
	res := c.switcher.RequestSwitch(player, c.target)

	if !res.Switched {
		c.notifier.Notify(ctx, notify.Notice{
			Player: player,
			Kind:   notify.KindSwitchDenied,
			Text:   notify.CooldownText(c.switcher.Config().SwitchCooldown, res.Remaining),
		})
		return nil
	}

	c.audit.Record(audit.Entry{
		Type:   audit.TypeModeSwitch,
		Player: player,
		Mode:   c.target.String(),
	})
	c.notifier.Notify(ctx, notify.Notice{
		Player: player,
		Kind:   notify.KindSwitchOK,
		Text:   notify.SwitchedText(c.target),
	})
	return nil
}

// Help handles /help.
type Help struct {
	notifier notify.Notifier
}

// NewHelp creates the /help command.
func NewHelp(notifier notify.Notifier) *Help {
	return &Help{notifier: notifier}
}

func (c *Help) Names() []string { return []string{"help"} }

func (c *Help) Handle(ctx context.Context, player model.PlayerID, _ string) error {
	c.notifier.Notify(ctx, notify.Notice{
		Player: player,
		Kind:   notify.KindHelp,
		Text:   notify.HelpText(),
	})
	return nil
}
