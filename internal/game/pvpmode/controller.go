package pvpmode

import (
	"log/slog"
	"slices"
	"time"

	"github.com/udisondev/pvpguard/internal/clock"
	"github.com/udisondev/pvpguard/internal/model"
)

const (
	// DefaultSwitchCooldown is the minimum time between two manual switches.
	DefaultSwitchCooldown = 4 * 24 * time.Hour
	// DefaultInactivityThreshold is how long a PvE player may stay offline
	// before the sweep reverts them to PvP.
	DefaultInactivityThreshold = 25 * time.Hour
)

// Config holds the timing rules of mode transitions.
type Config struct {
	SwitchCooldown      time.Duration
	InactivityThreshold time.Duration
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		SwitchCooldown:      DefaultSwitchCooldown,
		InactivityThreshold: DefaultInactivityThreshold,
	}
}

// SwitchResult describes the outcome of RequestSwitch.
type SwitchResult struct {
	Player   model.PlayerID
	Previous model.Mode
	Target   model.Mode
	Switched bool
	// Remaining is the time left on the cooldown when Switched is false.
	Remaining time.Duration
}

// Controller applies the transition rules on top of a Store.
type Controller struct {
	store *Store
	clock clock.Clock
	cfg   Config
}

// NewController creates a Controller. Zero durations in cfg take defaults.
func NewController(store *Store, clk clock.Clock, cfg Config) *Controller {
	if cfg.SwitchCooldown <= 0 {
		cfg.SwitchCooldown = DefaultSwitchCooldown
	}
	if cfg.InactivityThreshold <= 0 {
		cfg.InactivityThreshold = DefaultInactivityThreshold
	}
	return &Controller{store: store, clock: clk, cfg: cfg}
}

// Store returns the underlying store.
func (c *Controller) Store() *Store { return c.store }

// Config returns the effective timings.
func (c *Controller) Config() Config { return c.cfg }

// RequestSwitch moves the player to target unless the cooldown since the last
// manual switch has not elapsed yet. Requesting the current mode still counts
// as a switch and restarts the cooldown.
func (c *Controller) RequestSwitch(id model.PlayerID, target model.Mode) SwitchResult {
	now := c.clock.Now()
	rec := c.store.Get(id)

	res := SwitchResult{Player: id, Previous: rec.Mode, Target: target}

	if left := c.remaining(rec, now); left > 0 {
		res.Remaining = left
		return res
	}

	c.store.Set(id, func(r *model.ModeRecord) {
		r.Mode = target
		r.LastSwitchTime = now
	})
	res.Switched = true

	slog.Info("player switched mode", "player", id, "from", res.Previous, "to", target)
	return res
}

// CooldownRemaining returns how long rec must wait before the next switch.
// Zero when a switch is allowed now.
func (c *Controller) CooldownRemaining(rec model.ModeRecord) time.Duration {
	return c.remaining(rec, c.clock.Now())
}

func (c *Controller) remaining(rec model.ModeRecord, now time.Time) time.Duration {
	if !rec.HasSwitched() {
		return 0
	}
	elapsed := now.Sub(rec.LastSwitchTime)
	if elapsed >= c.cfg.SwitchCooldown {
		return 0
	}
	return c.cfg.SwitchCooldown - elapsed
}

// Sweep reverts PvE players unseen for longer than the inactivity threshold
// to PvP. LastSwitchTime is left as is. Returns the reverted ids.
func (c *Controller) Sweep() []model.PlayerID {
	now := c.clock.Now()
	reverted := c.store.UpdateAll(func(id model.PlayerID, r *model.ModeRecord) bool {
		if !r.IsPvE() || now.Sub(r.LastSeenTime) <= c.cfg.InactivityThreshold {
			return false
		}
		r.Mode = model.ModePvP
		return true
	})

	for _, id := range reverted {
		slog.Info("reverted inactive player to PvP", "player", id)
	}
	return reverted
}

// OnConnect ensures a record exists for id. Reports whether it was created.
func (c *Controller) OnConnect(id model.PlayerID) (model.ModeRecord, bool) {
	return c.store.GetOrCreate(id)
}

// OnDisconnect records the time the player was last seen.
func (c *Controller) OnDisconnect(id model.PlayerID) {
	now := c.clock.Now()
	c.store.Set(id, func(r *model.ModeRecord) {
		r.LastSeenTime = now
	})
}

// OnDisconnectAll records the last-seen time of every id in one flush.
// Ids without a record are skipped.
func (c *Controller) OnDisconnectAll(ids []model.PlayerID) {
	if len(ids) == 0 {
		return
	}
	now := c.clock.Now()
	c.store.UpdateAll(func(id model.PlayerID, r *model.ModeRecord) bool {
		if !slices.Contains(ids, id) {
			return false
		}
		r.LastSeenTime = now
		return true
	})
}

// ModeOf returns the current mode of id, materializing the default record.
func (c *Controller) ModeOf(id model.PlayerID) model.Mode {
	return c.store.Get(id).Mode
}
