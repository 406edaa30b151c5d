package redis

import (
	"fmt"

	"github.com/udisondev/pvpguard/internal/model"
)

// Hash fields of a player record.
const (
	fieldMode       = "mode"
	fieldLastSwitch = "last_switch"
	fieldLastSeen   = "last_seen"
)

// playerKey returns the hash key holding one player's record.
func playerKey(prefix string, id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", prefix, id)
}

// playersIndexKey returns the SET of all known player ids.
func playersIndexKey(prefix string) string {
	return fmt.Sprintf("%s:idx:players", prefix)
}
