package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/udisondev/pvpguard/internal/model"
)

// Chat texts shown to players.
const (
	TextWelcome         = "Welcome! Type /help to get a list of server commands"
	TextBroadcast       = "Type /help to get a list of server commands"
	TextStructureDenied = "This structure belongs to a PvE player and cannot be damaged."
	TextPlayerDenied    = "Cannot attack player"
	TextZoneDenied      = "Cannot attack player outside of a PvP zone"
	TextZoneEnter       = "You have entered a PvP zone! You can now be damaged by other players."
	TextZoneExit        = "You have left the PvP zone. You are now safe from PvP damage."
)

// HelpText lists the user commands.
func HelpText() string {
	return strings.Join([]string{
		"Commands:",
		" /pve - Sets the playmode to pve",
		" /pvp - Sets the playmode to pvp",
		" /help - Shows this list",
	}, "\n")
}

// SwitchedText confirms a mode switch.
func SwitchedText(mode model.Mode) string {
	return fmt.Sprintf("You are now in %s mode.", mode.Label())
}

// CooldownText rejects a switch attempted before the cooldown elapsed.
func CooldownText(cooldown, remaining time.Duration) string {
	days, hours := DaysHours(remaining)
	return fmt.Sprintf("You can only switch modes once every %s. Try again in %d days and %d hours.",
		FormatPeriod(cooldown), days, hours)
}

// DaysHours splits d into whole days and whole remaining hours, rounding down.
// Negative durations yield zeros.
func DaysHours(d time.Duration) (days, hours int) {
	if d <= 0 {
		return 0, 0
	}
	days = int(d / (24 * time.Hour))
	hours = int((d % (24 * time.Hour)) / time.Hour)
	return days, hours
}

// FormatPeriod renders a cooldown like "4 days" or "36 hours".
func FormatPeriod(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		n := int(d / (24 * time.Hour))
		if n == 1 {
			return "day"
		}
		return fmt.Sprintf("%d days", n)
	}
	if d%time.Hour == 0 {
		n := int(d / time.Hour)
		if n == 1 {
			return "hour"
		}
		return fmt.Sprintf("%d hours", n)
	}
	return d.String()
}
