// Package gameserver runs the cooperative loop that owns all combat state.
//
// Every engine event and timer is executed on the goroutine running
// Server.Run, so mode records, zone status and the active-player table are
// never mutated concurrently.
package gameserver

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/udisondev/pvpguard/internal/audit"
	"github.com/udisondev/pvpguard/internal/game/combat"
	"github.com/udisondev/pvpguard/internal/game/pvpmode"
	"github.com/udisondev/pvpguard/internal/game/zone"
	"github.com/udisondev/pvpguard/internal/gameserver/admin"
	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
)

// ErrStopped is returned by submissions after Run has exited.
var ErrStopped = errors.New("game server stopped")

// Config holds loop timer settings. Zero intervals disable the timer.
type Config struct {
	ModeSweepInterval time.Duration
	ZoneSweepInterval time.Duration
	BroadcastInterval time.Duration
	// PersistTimeout bounds the final save on shutdown.
	PersistTimeout time.Duration
}

// DefaultConfig returns the stock timer intervals.
func DefaultConfig() Config {
	return Config{
		ModeSweepInterval: 100 * time.Second,
		ZoneSweepInterval: 2 * time.Second,
		BroadcastInterval: 900 * time.Second,
		PersistTimeout:    10 * time.Second,
	}
}

// Deps are the components driven by the loop.
type Deps struct {
	Controller *pvpmode.Controller
	Tracker    *zone.Tracker
	Anchors    *zone.AnchorSet
	Authorizer *combat.Authorizer
	Commands   *admin.Handler
	Notifier   notify.Notifier
	Audit      audit.Recorder
}

// Server serializes engine events onto one goroutine.
type Server struct {
	cfg  Config
	deps Deps

	tasks   chan func()
	stopped chan struct{}

	// players maps connected players to their last reported position.
	// Owned by the loop goroutine.
	players map[model.PlayerID]model.Position
}

// New creates a Server. Run must be called to start processing.
func New(cfg Config, deps Deps) *Server {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if deps.Commands == nil {
		deps.Commands = admin.NewHandler(deps.Notifier)
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultConfig().PersistTimeout
	}

	return &Server{
		cfg:     cfg,
		deps:    deps,
		tasks:   make(chan func()),
		stopped: make(chan struct{}),
		players: make(map[model.PlayerID]model.Position, 64),
	}
}

// Run processes submitted events and timers until ctx is cancelled, then
// persists every mode record and returns.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.stopped)

	modeSweep := newTicker(s.cfg.ModeSweepInterval)
	defer modeSweep.Stop()
	zoneSweep := newTicker(s.cfg.ZoneSweepInterval)
	defer zoneSweep.Stop()
	broadcast := newTicker(s.cfg.BroadcastInterval)
	defer broadcast.Stop()

	slog.Info("game loop started",
		"mode_sweep", s.cfg.ModeSweepInterval,
		"zone_sweep", s.cfg.ZoneSweepInterval,
		"broadcast", s.cfg.BroadcastInterval,
		"rules", s.deps.Authorizer.Rules())

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case fn := <-s.tasks:
			fn()
		case <-modeSweep.C:
			s.sweepModes(ctx)
		case <-zoneSweep.C:
			s.sweepZones(ctx)
		case <-broadcast.C:
			s.broadcast(ctx)
		}
	}
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
	defer cancel()

	online := slices.Collect(maps.Keys(s.players))
	s.deps.Controller.OnDisconnectAll(online)
	for _, id := range online {
		s.deps.Tracker.Forget(id)
	}
	clear(s.players)

	store := s.deps.Controller.Store()
	if err := store.PersistAll(ctx); err != nil {
		slog.Error("final save of player modes failed", "error", err)
		return
	}
	slog.Info("game loop stopped", "players_saved", store.Len())
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (s *Server) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	select {
	case s.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}

	// The loop runs task before it can observe anything else, so done
	// always closes once the send succeeded.
	<-done
	return nil
}

// Stopped is closed when Run returns.
func (s *Server) Stopped() <-chan struct{} { return s.stopped }

// ticker wraps time.Ticker so a zero interval yields a channel that never fires.
type ticker struct {
	t *time.Ticker
	C <-chan time.Time
}

func newTicker(d time.Duration) ticker {
	if d <= 0 {
		return ticker{}
	}
	t := time.NewTicker(d)
	return ticker{t: t, C: t.C}
}

func (t ticker) Stop() {
	if t.t != nil {
		t.t.Stop()
	}
}
