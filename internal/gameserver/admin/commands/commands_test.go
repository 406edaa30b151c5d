package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/pvpguard/internal/audit"
	"github.com/udisondev/pvpguard/internal/game/pvpmode"
	"github.com/udisondev/pvpguard/internal/gameserver/admin"
	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
	"github.com/udisondev/pvpguard/internal/storage/memory"
	"github.com/udisondev/pvpguard/internal/testutil"
)

// recordingAudit collects audit entries.
type recordingAudit struct{ entries []audit.Entry }

func (r *recordingAudit) Record(e audit.Entry) { r.entries = append(r.entries, e) }

type fixture struct {
	handler *admin.Handler
	ctrl    *pvpmode.Controller
	clock   *testutil.MockClock
	notes   *testutil.RecordingNotifier
	audit   *recordingAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := testutil.NewMockClock(testutil.Epoch)
	ctrl := pvpmode.NewController(pvpmode.NewStore(memory.New(), clk), clk, pvpmode.DefaultConfig())
	notes := &testutil.RecordingNotifier{}
	rec := &recordingAudit{}

	h := admin.NewHandler(notes)
	RegisterAll(h, ctrl, notes, rec)

	return &fixture{handler: h, ctrl: ctrl, clock: clk, notes: notes, audit: rec}
}

func TestRegisterAll(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"help", "pve", "pvp"}, f.handler.UserCommandNames())
}

func TestSwitchMode_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.True(t, f.handler.HandleUserCommand(ctx, 1, "pvp"))

	assert.Equal(t, model.ModePvP, f.ctrl.ModeOf(1))
	got := f.notes.For(1)
	require.Len(t, got, 1)
	assert.Equal(t, notify.KindSwitchOK, got[0].Kind)
	assert.Equal(t, "You are now in PvP mode.", got[0].Text)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, audit.TypeModeSwitch, f.audit.entries[0].Type)
	assert.Equal(t, "pvp", f.audit.entries[0].Mode)
}

func TestSwitchMode_Cooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.True(t, f.handler.HandleUserCommand(ctx, 1, "pvp"))
	f.clock.Advance(4*24*time.Hour + time.Hour)
	require.True(t, f.handler.HandleUserCommand(ctx, 1, "pve"))
	f.clock.Advance(time.Hour)
	f.notes.Reset()

	require.True(t, f.handler.HandleUserCommand(ctx, 1, "pvp"))

	assert.Equal(t, model.ModePvE, f.ctrl.ModeOf(1))
	got := f.notes.For(1)
	require.Len(t, got, 1)
	assert.Equal(t, notify.KindSwitchDenied, got[0].Kind)
	assert.Equal(t, "You can only switch modes once every 4 days. Try again in 3 days and 23 hours.", got[0].Text)
	assert.Len(t, f.audit.entries, 2, "denied switch is not audited")
}

func TestHelp(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.handler.HandleUserCommand(context.Background(), 3, "HELP"))

	got := f.notes.For(3)
	require.Len(t, got, 1)
	assert.Equal(t, notify.KindHelp, got[0].Kind)
	assert.Equal(t, notify.HelpText(), got[0].Text)
}

func TestUnknownCommandIgnored(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.handler.HandleUserCommand(context.Background(), 3, "loc"))
	assert.Empty(t, f.notes.All())
	assert.Zero(t, f.ctrl.Store().Len())
}
