package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/pvpguard/internal/api"
	"github.com/udisondev/pvpguard/internal/audit"
	"github.com/udisondev/pvpguard/internal/bridge"
	"github.com/udisondev/pvpguard/internal/clock"
	"github.com/udisondev/pvpguard/internal/config"
	"github.com/udisondev/pvpguard/internal/game/combat"
	"github.com/udisondev/pvpguard/internal/game/pvpmode"
	"github.com/udisondev/pvpguard/internal/game/zone"
	"github.com/udisondev/pvpguard/internal/gameserver"
	"github.com/udisondev/pvpguard/internal/gameserver/admin"
	"github.com/udisondev/pvpguard/internal/gameserver/admin/commands"
	"github.com/udisondev/pvpguard/internal/notify"
	redisstore "github.com/udisondev/pvpguard/internal/storage/redis"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the game loop, the engine bridge and the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, c config.Config) error {
	if c.Bridge.JWTSecret == "" {
		return fmt.Errorf("bridge.jwt_secret is required")
	}

	slog.Info("pvpguard starting", "log_level", c.LogLevel, "backend", c.Storage.Backend)

	clk := clock.New()

	backend, closeBackend, err := openBackend(ctx, c)
	if err != nil {
		return err
	}
	defer closeBackend()

	store := pvpmode.NewStore(backend, clk)
	store.SetSaveTimeout(c.Storage.SaveTimeout)
	if err := store.LoadAll(ctx); err != nil {
		slog.Warn("loading player modes failed, starting empty", "error", err)
	} else {
		slog.Info("player modes loaded", "count", store.Len())
	}

	controller := pvpmode.NewController(store, clk, pvpmode.Config{
		SwitchCooldown:      c.Mode.SwitchCooldown,
		InactivityThreshold: c.Mode.InactivityThreshold,
	})

	anchors := zone.NewAnchorSet()
	detector := zone.NewDetector(anchors, c.Zone.Radius)
	tracker := zone.NewTracker(detector)

	rules, err := combat.BuildRules(c.Policy.Rules, controller, detector)
	if err != nil {
		return fmt.Errorf("building policy: %w", err)
	}
	authorizer := combat.NewAuthorizer(rules...)

	var recorder audit.Recorder = audit.Nop{}
	if c.Audit.Enabled {
		auditLog := audit.NewLog(c.Audit.Dir, clk, c.Audit.LogAllowed)
		defer func() {
			if err := auditLog.Close(); err != nil {
				slog.Warn("closing audit log", "error", err)
			}
		}()
		recorder = auditLog
		slog.Info("audit log enabled", "dir", c.Audit.Dir, "log_allowed", c.Audit.LogAllowed)
	}

	hub := bridge.NewHub()
	notifier := notify.Fanout{hub, notify.Log{}}
	if c.Notify.RedisPublish {
		publisher, closePublisher, err := redisPublisher(ctx, c)
		if err != nil {
			return err
		}
		defer closePublisher()
		notifier = append(notifier, publisher)
	}

	cmdHandler := admin.NewHandler(notifier)
	commands.RegisterAll(cmdHandler, controller, notifier, recorder)

	loopCfg := gameserver.Config{
		ModeSweepInterval: c.Mode.SweepInterval,
		ZoneSweepInterval: c.Zone.SweepInterval,
		PersistTimeout:    c.Storage.SaveTimeout,
	}
	if c.Broadcast.Enabled {
		loopCfg.BroadcastInterval = c.Broadcast.Interval
	}
	game := gameserver.New(loopCfg, gameserver.Deps{
		Controller: controller,
		Tracker:    tracker,
		Anchors:    anchors,
		Authorizer: authorizer,
		Commands:   cmdHandler,
		Notifier:   notifier,
		Audit:      recorder,
	})

	bridgeSrv := bridge.NewServer(bridge.Config{
		RateLimit:     c.Bridge.RateLimit,
		RateBurst:     c.Bridge.RateBurst,
		WriteTimeout:  c.Bridge.WriteTimeout,
		PongTimeout:   c.Bridge.PongTimeout,
		SendQueueSize: c.Bridge.SendQueueSize,
	}, game, hub, bridge.NewAuth([]byte(c.Bridge.JWTSecret)))
	bridgeHTTP := &http.Server{
		Addr:              net.JoinHostPort(c.Bridge.BindAddress, strconv.Itoa(c.Bridge.Port)),
		Handler:           bridgeSrv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := game.Run(gctx); err != nil {
			return fmt.Errorf("game loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("engine bridge listening", "addr", bridgeHTTP.Addr, "path", bridge.Path)
		if err := bridgeHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("engine bridge: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.CloseAll()
		if err := bridgeHTTP.Shutdown(shutdownCtx); err != nil {
			slog.Warn("engine bridge shutdown", "error", err)
		}
		return nil
	})

	if c.Admin.Enabled {
		if c.Admin.TokenHash == "" {
			slog.Warn("admin.token_hash is empty, protected admin endpoints will reject every request")
		}
		apiSrv := api.NewServer(api.NewRouter(api.RouterConfig{
			Logger:    slog.Default(),
			Modes:     store,
			Cooldown:  controller,
			Presence:  game,
			Anchors:   anchors,
			TokenHash: c.Admin.TokenHash,
		}), api.ServerConfig{
			Host: c.Admin.BindAddress,
			Port: c.Admin.Port,
		}, slog.Default())

		g.Go(apiSrv.Start)
		g.Go(func() error {
			<-gctx.Done()
			return apiSrv.Shutdown(context.Background())
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("pvpguard stopped")
	return nil
}

// redisPublisher mirrors notices to Redis pub/sub using the storage.redis
// connection settings.
func redisPublisher(ctx context.Context, c config.Config) (notify.Notifier, func(), error) {
	conn, err := redisstore.New(ctx, c.Storage.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting notice publisher to redis: %w", err)
	}
	slog.Info("publishing notices to redis", "channel", c.Notify.RedisChannel)
	pub := notify.NewRedisPublisher(conn.Client(), c.Notify.RedisChannel)
	closeConn := closeLogged("redis publisher", conn.Close)
	return pub, func() {
		pub.Close()
		closeConn()
	}, nil
}
