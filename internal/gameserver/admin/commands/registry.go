package commands

import (
	"github.com/udisondev/pvpguard/internal/audit"
	"github.com/udisondev/pvpguard/internal/gameserver/admin"
	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
)

// RegisterAll registers all user commands into the handler.
func RegisterAll(h *admin.Handler, switcher ModeSwitcher, notifier notify.Notifier, rec audit.Recorder) {
	if rec == nil {
		rec = audit.Nop{}
	}

	h.RegisterUser(NewSwitchMode(model.ModePvE, switcher, notifier, rec))
	h.RegisterUser(NewSwitchMode(model.ModePvP, switcher, notifier, rec))
	h.RegisterUser(NewHelp(notifier))
}
