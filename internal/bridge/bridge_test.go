package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/pvpguard/internal/game/combat"
	"github.com/udisondev/pvpguard/internal/game/pvpmode"
	"github.com/udisondev/pvpguard/internal/game/zone"
	"github.com/udisondev/pvpguard/internal/gameserver"
	"github.com/udisondev/pvpguard/internal/gameserver/admin"
	"github.com/udisondev/pvpguard/internal/gameserver/admin/commands"
	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
	"github.com/udisondev/pvpguard/internal/storage/memory"
	"github.com/udisondev/pvpguard/internal/testutil"
)

var testSecret = []byte("bridge-test-secret")

// startBridge wires a real game loop behind a bridge test server.
func startBridge(t *testing.T) (*httptest.Server, *pvpmode.Controller, *testutil.MockClock) {
	t.Helper()

	clk := testutil.NewMockClock(testutil.Epoch)
	ctrl := pvpmode.NewController(pvpmode.NewStore(memory.New(), clk), clk, pvpmode.DefaultConfig())
	anchors := zone.NewAnchorSet()
	detector := zone.NewDetector(anchors, 0)
	hub := NewHub()

	rules, err := combat.BuildRules([]string{combat.RuleStructure, combat.RuleMode}, ctrl, detector)
	require.NoError(t, err)

	cmds := admin.NewHandler(hub)
	commands.RegisterAll(cmds, ctrl, hub, nil)

	game := gameserver.New(gameserver.Config{}, gameserver.Deps{
		Controller: ctrl,
		Tracker:    zone.NewTracker(detector),
		Anchors:    anchors,
		Authorizer: combat.NewAuthorizer(rules...),
		Commands:   cmds,
		Notifier:   hub,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = game.Run(ctx) }()

	srv := httptest.NewServer(NewServer(Config{}, game, hub, NewAuth(testSecret)).Router())
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
		cancel()
	})
	return srv, ctrl, clk
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	token, err := NewAuth(testSecret).IssueToken("eu-1", time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + Path
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendJSON(t *testing.T, ws *websocket.Conn, m Message) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(m))
}

// readUntil reads frames until one has the wanted type.
func readUntil(t *testing.T, ws *websocket.Conn, want MsgType) Message {
	t.Helper()
	seen := readThrough(t, ws, want)
	return seen[len(seen)-1]
}

// readThrough reads frames up to and including the first of the wanted type
// and returns all of them.
func readThrough(t *testing.T, ws *websocket.Conn, want MsgType) []Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var seen []Message
	for {
		frameType, data, err := ws.ReadMessage()
		require.NoError(t, err)
		cd, err := codecFor(frameType)
		require.NoError(t, err)
		m, err := cd.decode(data)
		require.NoError(t, err)
		seen = append(seen, m)
		if m.Type == want {
			return seen
		}
	}
}

func TestBridge_RejectsMissingOrBadToken(t *testing.T) {
	srv, _, _ := startBridge(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + Path

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	forged, err := NewAuth([]byte("other")).IssueToken("eu-1", time.Hour)
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(url+"?token="+forged, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBridge_ConnectSendsWelcome(t *testing.T) {
	srv, ctrl, _ := startBridge(t)
	ws := dial(t, srv)

	sendJSON(t, ws, Message{Type: MsgConnect, Player: 76561198000000001, Pos: &Vec{X: 1}})

	m := readUntil(t, ws, MsgNotice)
	require.NotNil(t, m.Notice)
	assert.Equal(t, model.PlayerID(76561198000000001), m.Notice.Player)
	assert.Equal(t, notify.KindWelcome, m.Notice.Kind)
	assert.Equal(t, notify.TextWelcome, m.Notice.Text)

	assert.Equal(t, model.ModePvE, ctrl.ModeOf(76561198000000001))
}

func TestBridge_DamageDecisionJSON(t *testing.T) {
	srv, _, _ := startBridge(t)
	ws := dial(t, srv)

	sendJSON(t, ws, Message{Type: MsgConnect, Player: 1})
	sendJSON(t, ws, Message{Type: MsgConnect, Player: 2})
	sendJSON(t, ws, Message{
		Type: MsgDamage,
		Seq:  41,
		Damage: &DamageMsg{
			Attacker:     &EntityMsg{Kind: "player", Player: 2},
			Target:       EntityMsg{Kind: "player", Player: 1, Pos: Vec{X: 3}},
			DamageTypes:  map[string]float64{"bullet": 30},
			HitMaterial:  5,
			DoHitEffects: true,
			HitPosition:  Vec{X: 3},
		},
	})

	seen := readThrough(t, ws, MsgDecision)
	m := seen[len(seen)-1]
	assert.Equal(t, uint64(41), m.Seq)
	require.NotNil(t, m.Decision)
	assert.False(t, m.Decision.Allow)
	assert.Equal(t, combat.RuleMode, m.Decision.Rule)

	require.NotNil(t, m.Decision.Event)
	assert.Nil(t, m.Decision.Event.Attacker)
	assert.Empty(t, m.Decision.Event.DamageTypes)
	assert.Zero(t, m.Decision.Event.HitMaterial)
	assert.False(t, m.Decision.Event.DoHitEffects)
	assert.Equal(t, Vec{}, m.Decision.Event.HitPosition)

	// the denial notice is delivered before the decision
	var denied []notify.Notice
	for _, msg := range seen {
		if msg.Type == MsgNotice && msg.Notice.Kind == notify.KindDamageDenied {
			denied = append(denied, *msg.Notice)
		}
	}
	require.Len(t, denied, 1)
	assert.Equal(t, model.PlayerID(2), denied[0].Player)
	assert.Equal(t, notify.TextPlayerDenied, denied[0].Text)
}

func TestBridge_ChatCommandAndMsgpack(t *testing.T) {
	srv, ctrl, _ := startBridge(t)
	ws := dial(t, srv)

	send := func(m Message) {
		data, err := codecMsgpack.encode(m)
		require.NoError(t, err)
		require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, data))
	}

	send(Message{Type: MsgConnect, Player: 9})
	send(Message{Type: MsgChat, Seq: 3, Player: 9, Text: "/pvp"})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var result Message
	for result.Type != MsgChatResult {
		frameType, data, err := ws.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.BinaryMessage, frameType, "replies use the request encoding")
		result, err = codecMsgpack.decode(data)
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(3), result.Seq)
	assert.True(t, result.Handled)
	assert.Equal(t, model.ModePvP, ctrl.ModeOf(9))
}

func TestBridge_UnknownTypeAndBadPayload(t *testing.T) {
	srv, _, _ := startBridge(t)
	ws := dial(t, srv)

	sendJSON(t, ws, Message{Type: "teleport", Seq: 5})
	m := readUntil(t, ws, MsgError)
	assert.Equal(t, uint64(5), m.Seq)
	assert.Contains(t, m.Error, "unknown message type")

	sendJSON(t, ws, Message{Type: MsgDamage, Seq: 6})
	m = readUntil(t, ws, MsgError)
	assert.Equal(t, uint64(6), m.Seq)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	m = readUntil(t, ws, MsgError)
	assert.Contains(t, m.Error, "decoding message")
}

func TestBridge_EngineDropDisconnectsPlayers(t *testing.T) {
	srv, ctrl, clk := startBridge(t)
	ws := dial(t, srv)

	sendJSON(t, ws, Message{Type: MsgConnect, Player: 4})
	readUntil(t, ws, MsgNotice)
	clk.Advance(time.Hour)

	require.NoError(t, ws.Close())

	assert.Eventually(t, func() bool {
		rec, ok := ctrl.Store().Lookup(4)
		return ok && rec.LastSeenTime.Equal(clk.Now())
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAuth_IssueValidate(t *testing.T) {
	a := NewAuth(testSecret)

	token, err := a.IssueToken("us-2", time.Hour)
	require.NoError(t, err)

	server, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "us-2", server)

	_, err = a.IssueToken("", time.Hour)
	assert.Error(t, err)

	_, err = a.Validate("garbage")
	assert.Error(t, err)
}

func TestAuth_ExpiredToken(t *testing.T) {
	a := NewAuth(testSecret)
	token, err := a.IssueToken("eu-1", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(time.Second + 10*time.Millisecond)

	_, err = a.Validate(token)
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		query   string
		want    string
		wantErr bool
	}{
		{"bearer header", "Bearer abc", "", "abc", false},
		{"query fallback", "", "xyz", "xyz", false},
		{"wrong scheme", "Basic abc", "", "", true},
		{"nothing", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, Path+"?token="+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := tokenFromRequest(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessage_JSONShape(t *testing.T) {
	ev := testutil.PlayerHit(testutil.PlayerRef(1, model.Position{}), testutil.PlayerRef(2, model.NewPosition(1, 2, 3)))
	data, err := json.Marshal(Message{Type: MsgDamage, Seq: 1, Damage: DamageMsgOf(ev)})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "damage", raw["type"])
	dmg := raw["damage"].(map[string]any)
	assert.Equal(t, "player", dmg["target"].(map[string]any)["kind"])
	assert.Contains(t, dmg, "do_hit_effects")
	assert.NotContains(t, raw, "decision")

	back := DamageMsgOf(ev).Event()
	assert.Equal(t, ev.Target, back.Target)
	assert.Equal(t, *ev.Attacker, *back.Attacker)
	assert.Equal(t, ev.DamageTypes, back.DamageTypes)
}
