// Package audit keeps a durable trail of authorization decisions and mode
// changes as compressed JSON lines.
package audit

import (
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/udisondev/pvpguard/internal/clock"
	"github.com/udisondev/pvpguard/internal/model"
)

// Type classifies an Entry.
type Type string

const (
	TypeDamageDenied  Type = "damage_denied"
	TypeDamageAllowed Type = "damage_allowed"
	TypeModeSwitch    Type = "mode_switch"
	TypeModeReverted  Type = "mode_reverted"
)

// Entry is one audit line.
type Entry struct {
	ID     string         `json:"id"`
	Time   time.Time      `json:"time"`
	Type   Type           `json:"type"`
	Player model.PlayerID `json:"player,omitempty"`
	Target string         `json:"target,omitempty"`
	Rule   string         `json:"rule,omitempty"`
	Reason string         `json:"reason,omitempty"`
	Mode   string         `json:"mode,omitempty"`
	Amount float64        `json:"amount,omitempty"`
}

// Recorder accepts audit entries. ID and Time are filled in when empty.
type Recorder interface {
	Record(e Entry)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(Entry) {}

// Log writes entries to hourly zstd JSONL files under a directory.
type Log struct {
	w          *jsonlWriter
	clock      clock.Clock
	logAllowed bool
}

var _ Recorder = (*Log)(nil)

// NewLog creates a Log writing to dir. Allowed-damage entries are dropped
// unless logAllowed is set.
func NewLog(dir string, clk clock.Clock, logAllowed bool) *Log {
	return &Log{
		w:          newJSONLWriter(dir, "audit"),
		clock:      clk,
		logAllowed: logAllowed,
	}
}

// Record appends e. Write failures are logged and otherwise ignored.
func (l *Log) Record(e Entry) {
	if e.Type == TypeDamageAllowed && !l.logAllowed {
		return
	}
	if e.Time.IsZero() {
		e.Time = l.clock.Now().UTC()
	}
	if e.ID == "" {
		e.ID = ulid.MustNew(ulid.Timestamp(e.Time), ulid.DefaultEntropy()).String()
	}

	if err := l.w.Write(e.Time, e); err != nil {
		slog.Error("writing audit entry", "type", e.Type, "error", err)
	}
}

// Close flushes the current file.
func (l *Log) Close() error {
	return l.w.Close()
}
