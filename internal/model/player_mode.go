package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PlayerID is the stable numeric identity of a player (Steam ID on most hosts).
// Zero means the identity could not be resolved.
type PlayerID uint64

// String returns the decimal form used as the persisted document key.
func (id PlayerID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParsePlayerID parses the decimal form of a PlayerID.
func ParsePlayerID(s string) (PlayerID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing player id %q: %w", s, err)
	}
	return PlayerID(v), nil
}

// Mode is the combat mode a player has chosen.
type Mode uint8

const (
	// ModePvE protects the player (and their structures) from player damage.
	ModePvE Mode = iota
	// ModePvP lets the player deal and receive player damage.
	ModePvP
)

// String returns "pve" or "pvp".
func (m Mode) String() string {
	switch m {
	case ModePvE:
		return "pve"
	case ModePvP:
		return "pvp"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Label returns the display form used in chat ("PvE", "PvP").
func (m Mode) Label() string {
	if m == ModePvE {
		return "PvE"
	}
	return "PvP"
}

// ParseMode parses "pve" or "pvp" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pve":
		return ModePvE, nil
	case "pvp":
		return ModePvP, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// ModeRecord is the persisted mode state of one player.
//
// LastSwitchTime is zero until the player switches manually for the first time.
// LastSeenTime is refreshed on disconnect.
type ModeRecord struct {
	Mode           Mode
	LastSwitchTime time.Time
	LastSeenTime   time.Time
}

// DefaultModeRecord returns the record materialized on first contact.
func DefaultModeRecord(now time.Time) ModeRecord {
	return ModeRecord{
		Mode:         ModePvE,
		LastSeenTime: now,
	}
}

// IsPvE reports whether the record is in PvE mode.
func (r ModeRecord) IsPvE() bool { return r.Mode == ModePvE }

// HasSwitched reports whether the player ever switched mode manually.
func (r ModeRecord) HasSwitched() bool { return !r.LastSwitchTime.IsZero() }

// modeRecordJSON is the on-disk shape of a record. Field names are part of
// the persisted document format and must not change.
type modeRecordJSON struct {
	IsPvE          bool    `json:"IsPvE"`
	LastSwitchTime isoTime `json:"LastSwitchTime"`
	LastLogin      isoTime `json:"LastLogin"`
}

// MarshalJSON encodes the record in the persisted document format.
func (r ModeRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(modeRecordJSON{
		IsPvE:          r.IsPvE(),
		LastSwitchTime: isoTime(r.LastSwitchTime),
		LastLogin:      isoTime(r.LastSeenTime),
	})
}

// UnmarshalJSON decodes the persisted document format.
func (r *ModeRecord) UnmarshalJSON(data []byte) error {
	var raw modeRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Mode = ModePvP
	if raw.IsPvE {
		r.Mode = ModePvE
	}
	r.LastSwitchTime = time.Time(raw.LastSwitchTime)
	r.LastSeenTime = time.Time(raw.LastLogin)
	return nil
}

// isoTime is an ISO 8601 timestamp. It is written as RFC 3339 in UTC and
// also accepts timestamps without a zone designator (read as UTC), which
// older data files contain.
type isoTime time.Time

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
}

func (t isoTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

func (t *isoTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range isoLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			*t = isoTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("timestamp %q is not ISO 8601", s)
}
