package gameserver

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/pvpguard/internal/audit"
	"github.com/udisondev/pvpguard/internal/game/combat"
	"github.com/udisondev/pvpguard/internal/game/pvpmode"
	"github.com/udisondev/pvpguard/internal/game/zone"
	"github.com/udisondev/pvpguard/internal/gameserver/admin"
	"github.com/udisondev/pvpguard/internal/gameserver/admin/commands"
	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
	"github.com/udisondev/pvpguard/internal/storage/memory"
	"github.com/udisondev/pvpguard/internal/testutil"
)

type auditLog struct{ entries []audit.Entry }

func (a *auditLog) Record(e audit.Entry) { a.entries = append(a.entries, e) }

func (a *auditLog) types() []audit.Type {
	out := make([]audit.Type, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	srv     *Server
	ctrl    *pvpmode.Controller
	anchors *zone.AnchorSet
	backend *memory.Storage
	clock   *testutil.MockClock
	notes   *testutil.RecordingNotifier
	audit   *auditLog
	cancel  context.CancelFunc
	done    chan error
	once    sync.Once
}

// startServer runs a Server with timers disabled; tests drive sweeps directly.
func startServer(t *testing.T, rules ...string) *harness {
	t.Helper()

	clk := testutil.NewMockClock(testutil.Epoch)
	backend := memory.New()
	ctrl := pvpmode.NewController(pvpmode.NewStore(backend, clk), clk, pvpmode.DefaultConfig())
	anchors := zone.NewAnchorSet()
	detector := zone.NewDetector(anchors, zone.DefaultRadius)
	notes := &testutil.RecordingNotifier{}
	rec := &auditLog{}

	built, err := combat.BuildRules(rules, ctrl, detector)
	require.NoError(t, err)

	cmds := admin.NewHandler(notes)
	commands.RegisterAll(cmds, ctrl, notes, rec)

	srv := New(Config{}, Deps{
		Controller: ctrl,
		Tracker:    zone.NewTracker(detector),
		Anchors:    anchors,
		Authorizer: combat.NewAuthorizer(built...),
		Commands:   cmds,
		Notifier:   notes,
		Audit:      rec,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	h := &harness{
		srv: srv, ctrl: ctrl, anchors: anchors, backend: backend,
		clock: clk, notes: notes, audit: rec, cancel: cancel, done: done,
	}
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.once.Do(func() {
		h.cancel()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
		}
	})
}

func TestServer_ConnectWelcomesAndCreatesRecord(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.Connect(ctx, 1, model.Position{}))

	assert.Equal(t, []notify.Kind{notify.KindWelcome}, h.notes.Kinds(1))
	rec, ok := h.ctrl.Store().Lookup(1)
	require.True(t, ok)
	assert.Equal(t, model.ModePvE, rec.Mode)

	players, err := h.srv.ActivePlayers(ctx)
	require.NoError(t, err)
	assert.Contains(t, players, model.PlayerID(1))
}

func TestServer_DisconnectUpdatesLastSeen(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.Connect(ctx, 1, model.Position{}))
	h.clock.Advance(2 * time.Hour)
	require.NoError(t, h.srv.Disconnect(ctx, 1))

	assert.Equal(t, h.clock.Now(), h.ctrl.Store().Get(1).LastSeenTime)
	players, err := h.srv.ActivePlayers(ctx)
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestServer_DamageDeniedBetweenDefaultPlayers(t *testing.T) {
	h := startServer(t, combat.RuleMode)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)
	const a, b model.PlayerID = 1, 2

	require.NoError(t, h.srv.Connect(ctx, a, model.Position{}))
	require.NoError(t, h.srv.Connect(ctx, b, model.Position{}))
	h.notes.Reset()

	ev := testutil.PlayerHit(testutil.PlayerRef(b, model.Position{}), testutil.PlayerRef(a, model.Position{}))
	d, err := h.srv.Damage(ctx, ev)
	require.NoError(t, err)

	assert.False(t, d.Allowed)
	assert.Equal(t, b, d.Attacker)
	assert.Zero(t, ev.TotalDamage())
	assert.Nil(t, ev.Attacker)

	got := h.notes.For(b)
	require.Len(t, got, 1)
	assert.Equal(t, notify.KindDamageDenied, got[0].Kind)
	assert.Equal(t, notify.TextPlayerDenied, got[0].Text)
	assert.Empty(t, h.notes.For(a))
	assert.Equal(t, []audit.Type{audit.TypeDamageDenied}, h.audit.types())
}

func TestServer_PvPPlayersCanFightAfterSwitching(t *testing.T) {
	h := startServer(t, combat.RuleMode)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	for _, id := range []model.PlayerID{1, 2} {
		require.NoError(t, h.srv.Connect(ctx, id, model.Position{}))
		handled, err := h.srv.Chat(ctx, id, "/pvp")
		require.NoError(t, err)
		require.True(t, handled)
	}

	ev := testutil.PlayerHit(testutil.PlayerRef(1, model.Position{}), testutil.PlayerRef(2, model.Position{}))
	d, err := h.srv.Damage(ctx, ev)
	require.NoError(t, err)

	assert.True(t, d.Allowed)
	assert.Equal(t, 37.0, ev.TotalDamage())
}

func TestServer_StructureOwnedByPvEPlayer(t *testing.T) {
	h := startServer(t, combat.RuleStructure)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	owner := testutil.PlayerRef(1, model.Position{})
	raider := testutil.PlayerRef(2, model.Position{})
	wall := testutil.StructureRef(1, model.NewPosition(3, 0, 0))

	d, err := h.srv.Damage(ctx, testutil.StructureHit(&raider, wall))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, []notify.Kind{notify.KindDamageDenied}, h.notes.Kinds(2))

	d, err = h.srv.Damage(ctx, testutil.StructureHit(&owner, wall))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestServer_ChatIgnoresPlainText(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	handled, err := h.srv.Chat(ctx, 1, "hello /pvp")
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = h.srv.Chat(ctx, 1, "/unknown")
	require.NoError(t, err)
	assert.False(t, handled)

	assert.Equal(t, model.ModePvE, h.ctrl.ModeOf(1))
}

func TestServer_ZoneSweepNotifiesOncePerCrossing(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.AddAnchor(ctx, model.BaseAnchor{ID: 1}))
	require.NoError(t, h.srv.Connect(ctx, 7, model.NewPosition(49, 0, 0)))
	h.notes.Reset()

	steps := []float64{49, 49, 51, 49}
	for _, x := range steps {
		require.NoError(t, h.srv.Move(ctx, 7, model.NewPosition(x, 0, 0)))
		require.NoError(t, h.srv.SweepZones(ctx))
	}

	assert.Equal(t, []notify.Kind{
		notify.KindZoneEnter,
		notify.KindZoneExit,
		notify.KindZoneEnter,
	}, h.notes.Kinds(7))
}

func TestServer_RemoveAnchorExitsZone(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.AddAnchor(ctx, model.BaseAnchor{ID: 1}))
	require.NoError(t, h.srv.Connect(ctx, 7, model.Position{}))
	require.NoError(t, h.srv.SweepZones(ctx))
	require.NoError(t, h.srv.RemoveAnchor(ctx, 1))
	require.NoError(t, h.srv.SweepZones(ctx))

	assert.Equal(t, []notify.Kind{notify.KindWelcome, notify.KindZoneEnter, notify.KindZoneExit}, h.notes.Kinds(7))
}

func TestServer_MoveIgnoresUnknownPlayer(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.Move(ctx, 9, model.Position{}))

	players, err := h.srv.ActivePlayers(ctx)
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestServer_SweepModesRevertsOfflinePvE(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.Connect(ctx, 1, model.Position{}))
	require.NoError(t, h.srv.Disconnect(ctx, 1))
	h.clock.Advance(26 * time.Hour)

	reverted, err := h.srv.SweepModes(ctx)
	require.NoError(t, err)

	assert.Equal(t, []model.PlayerID{1}, reverted)
	assert.Equal(t, model.ModePvP, h.ctrl.ModeOf(1))
	assert.Contains(t, h.audit.types(), audit.TypeModeReverted)
}

func TestServer_ReconnectKeepsLastSeenFromDisconnect(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.Connect(ctx, 1, model.Position{}))
	require.NoError(t, h.srv.Disconnect(ctx, 1))
	leftAt := h.clock.Now()

	h.clock.Advance(24 * time.Hour)
	require.NoError(t, h.srv.Connect(ctx, 1, model.Position{}))
	assert.Equal(t, leftAt, h.ctrl.Store().Get(1).LastSeenTime)

	h.clock.Advance(2 * time.Hour)
	reverted, err := h.srv.SweepModes(ctx)
	require.NoError(t, err)

	assert.Equal(t, []model.PlayerID{1}, reverted, "online players are reverted once the threshold passes")
	assert.Equal(t, model.ModePvP, h.ctrl.ModeOf(1))
}

func TestServer_BroadcastReachesConnectedPlayers(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.Connect(ctx, 1, model.Position{}))
	require.NoError(t, h.srv.Connect(ctx, 2, model.Position{}))
	require.NoError(t, h.srv.Disconnect(ctx, 2))
	h.notes.Reset()

	require.NoError(t, h.srv.Broadcast(ctx))

	assert.Equal(t, []notify.Kind{notify.KindBroadcast}, h.notes.Kinds(1))
	assert.Empty(t, h.notes.For(2))
}

func TestServer_ShutdownPersistsAndRejects(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.Connect(ctx, 1, model.Position{}))
	saves := h.backend.Saves()

	h.stop()

	assert.Greater(t, h.backend.Saves(), saves)
	assert.Contains(t, h.backend.Records(), model.PlayerID(1))
	assert.ErrorIs(t, h.srv.Connect(ctx, 2, model.Position{}), ErrStopped)
}

func TestServer_ShutdownRecordsLastSeenOfOnlinePlayers(t *testing.T) {
	h := startServer(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, h.srv.Connect(ctx, 7, model.Position{}))
	require.NoError(t, h.srv.Connect(ctx, 8, model.Position{}))
	require.NoError(t, h.srv.Disconnect(ctx, 8))
	leftAt := h.clock.Now()
	h.clock.Advance(30 * time.Hour)

	h.stop()

	saved := h.backend.Records()
	assert.True(t, h.clock.Now().Equal(saved[7].LastSeenTime))
	assert.True(t, leftAt.Equal(saved[8].LastSeenTime))
	assert.ErrorIs(t, h.srv.Disconnect(ctx, 7), ErrStopped)
}

func TestServer_TimersFire(t *testing.T) {
	clk := testutil.NewMockClock(testutil.Epoch)
	ctrl := pvpmode.NewController(pvpmode.NewStore(memory.New(), clk), clk, pvpmode.DefaultConfig())
	anchors := zone.NewAnchorSet()
	anchors.Add(model.BaseAnchor{ID: 1})
	detector := zone.NewDetector(anchors, 0)
	notes := &testutil.RecordingNotifier{}

	srv := New(Config{
		ZoneSweepInterval: 10 * time.Millisecond,
		BroadcastInterval: 10 * time.Millisecond,
	}, Deps{
		Controller: ctrl,
		Tracker:    zone.NewTracker(detector),
		Anchors:    anchors,
		Authorizer: combat.NewAuthorizer(),
		Notifier:   notes,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Run(ctx) }()

	require.NoError(t, srv.Connect(ctx, 1, model.Position{}))

	assert.Eventually(t, func() bool {
		kinds := notes.Kinds(1)
		return slices.Contains(kinds, notify.KindZoneEnter) && slices.Contains(kinds, notify.KindBroadcast)
	}, 2*time.Second, 10*time.Millisecond)
}
